package process

// Thread is a live thread owned by its process; the handle never outlives
// the process object.
type Thread interface {
	ID() int
	// IsHalted reports whether this thread is the one the process is
	// currently stopped on. At most one thread per process is halted.
	IsHalted() bool
}
