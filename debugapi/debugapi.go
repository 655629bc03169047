// Package debugapi defines the contract between the debuggee-process core
// and the operating system's debug facilities: attach/detach, resuming and
// stepping stopped threads, asynchronous break and terminate requests,
// cross-process memory access, thread register contexts, and the blocking
// wait that yields the next debug event.
//
// The core drives this interface; it never issues OS calls directly. A real
// backend lives in this package (PtraceAPI, Linux), an in-memory one in the
// fake sub-package.
package debugapi

import (
	"context"
	"io"
)

// ProcessInfo describes properties of a debuggee fixed at attach time.
type ProcessInfo struct {
	// WordSizeBits is the debuggee's pointer width, 32 or 64.
	WordSizeBits int
	// WoW reports a 32-bit debuggee running on a 64-bit OS.
	WoW bool
	// Arch names the debuggee's instruction set ("amd64", "386").
	Arch string
}

// Registers is the slice of a thread's context the core needs: the program
// counter. Mutations take effect when the value is written back through
// WriteRegisters.
type Registers interface {
	PC() uint64
	SetPC(uint64)
}

type DebugAPI interface {
	io.Closer

	Attach(pid int) (ProcessInfo, error)
	Detach(pid int) error

	// ContinueDebugEvent resumes the thread whose stop is the current
	// debug event. passException forwards the stopping exception to the
	// debuggee instead of swallowing it.
	ContinueDebugEvent(pid, tid int, passException bool) error

	// SingleStep resumes the stopped thread for exactly one instruction;
	// completion is reported as a single-step exception event.
	SingleStep(pid, tid int) error

	// BreakProcess asks the OS to stop the process. The request is
	// asynchronous; the stop arrives later as an exception event.
	BreakProcess(pid int) error

	// TerminateProcess requests termination of every thread. The process
	// is gone only once the exit event has been delivered.
	TerminateProcess(pid int) error

	ReadProcessMemory(pid int, addr uint64, buf []byte) error
	WriteProcessMemory(pid int, addr uint64, data []byte) error

	ReadRegisters(pid, tid int) (Registers, error)
	WriteRegisters(pid, tid int, regs Registers) error

	// WaitForDebugEvent blocks until the OS reports the next debug event
	// for any attached process. Only the driver loop calls this.
	WaitForDebugEvent(ctx context.Context) (DebugEvent, error)
}
