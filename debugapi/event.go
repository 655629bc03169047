package debugapi

type EventKind int

const (
	EventCreateProcess EventKind = iota
	EventExitProcess
	EventCreateThread
	EventExitThread
	EventLoadModule
	EventUnloadModule
	EventException
	EventDebugString
)

func (k EventKind) String() string {
	switch k {
	case EventCreateProcess:
		return "create-process"
	case EventExitProcess:
		return "exit-process"
	case EventCreateThread:
		return "create-thread"
	case EventExitThread:
		return "exit-thread"
	case EventLoadModule:
		return "load-module"
	case EventUnloadModule:
		return "unload-module"
	case EventException:
		return "exception"
	case EventDebugString:
		return "debug-string"
	}
	return "unknown"
}

type ExceptionKind int

const (
	ExceptionGeneric ExceptionKind = iota
	ExceptionBreakpoint
	ExceptionSingleStep
)

func (k ExceptionKind) String() string {
	switch k {
	case ExceptionBreakpoint:
		return "breakpoint"
	case ExceptionSingleStep:
		return "single-step"
	}
	return "generic"
}

// DebugEvent is the tagged record delivered by WaitForDebugEvent. Kind, Pid
// and Tid are always meaningful; the remaining fields only for the kinds
// noted. Events are immutable once constructed.
type DebugEvent struct {
	Kind EventKind
	Pid  int
	Tid  int

	// EventLoadModule, EventUnloadModule.
	ModuleBase  uint64
	ModuleEntry uint64

	// EventException. ExceptionAddr is the address of the faulting
	// instruction; for breakpoint exceptions that is the trap instruction
	// itself.
	Exception     ExceptionKind
	ExceptionCode int
	ExceptionAddr uint64

	// EventExitProcess, EventExitThread.
	ExitCode int

	// EventDebugString. The string bytes live in debuggee memory.
	StringAddr uint64
	StringLen  int
}
