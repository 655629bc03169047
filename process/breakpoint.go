package process

// Breakpoint is a software breakpoint installed in debuggee memory. The
// process owns it and keeps the byte the trap encoding displaced.
type Breakpoint interface {
	Addr() uint64
	OriginalByte() byte
}
