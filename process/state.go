package process

type State int

const (
	// StateRunning: alive, the event loop is waiting on the OS. Only
	// Break, Kill and Detach are legal.
	StateRunning State = iota
	// StateHalted: alive, stopped on a debug event. All control
	// operations except Break are legal.
	StateHalted
	// StateDead: exited, killed, or detached. Only read-only queries
	// remain legal.
	StateDead
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateDead:
		return "dead"
	}
	return "unknown"
}
