// Package process models one debugged process: its run state, threads,
// software breakpoints, breakpoint-transparent memory access, and the
// control operations that drive it. The concrete implementation lives in
// internal/process; importing an architecture package such as process/x86
// makes it constructible through Attach.
package process

import (
	"github.com/sirupsen/logrus"

	"github.com/nexedbg/nexedbg/debugapi"
)

// Process is the public control and query surface of a debuggee.
//
// Continue, ContinueAndPassException, SingleStep, ReadMemory, WriteMemory,
// ReadObject and ReadDebugString belong to the goroutine that attached.
// Break, Kill and Detach may be called from any goroutine.
type Process interface {
	ID() int
	State() State
	IsHalted() bool

	// EnableCompatibilityMode makes the dispatcher rewind a halted
	// thread's program counter by the trap width on breakpoint hits, so
	// resuming re-executes the displaced instruction.
	EnableCompatibilityMode()
	CompatibilityMode() bool

	WordSizeBits() int
	IsWoW() bool

	// LastDebugEvent returns the most recently dispatched event, nil
	// before the first dispatch.
	LastDebugEvent() *debugapi.DebugEvent

	// NexeMemBase and NexeEntryPoint are zero until a module-load event
	// has been dispatched.
	NexeMemBase() uint64
	NexeEntryPoint() uint64

	// FromNexeToFlatAddress converts a sandbox-relative pointer to a flat
	// address. Before the module loads the input is assumed already flat
	// and returned unchanged. 32-bit debuggees wrap to 32 bits.
	FromNexeToFlatAddress(ptr uint64) uint64

	Continue() error
	ContinueAndPassException() error
	SingleStep() error
	Break() error

	// Kill requests termination of every thread. The process stays
	// addressable until the exit event has been dispatched.
	Kill() error

	// Detach releases the process without killing it. From this point the
	// object is dead to the debugger even though the OS process runs on.
	Detach() error

	// Thread returns nil when no thread has the id.
	Thread(id int) Thread
	// HaltedThread returns nil unless the process is halted.
	HaltedThread() Thread
	ThreadIDs() []int

	ReadMemory(addr uint64, buf []byte) error
	WriteMemory(addr uint64, data []byte) error

	// ReadObject extracts a typed value from debuggee memory; see package
	// encoding for the supported shapes.
	ReadObject(addr uint64, val any) error

	// ReadDebugString is valid only while the last event is a
	// debug-string event.
	ReadDebugString() (string, error)

	SetBreakpoint(addr uint64) error
	RemoveBreakpoint(addr uint64) error
	// Breakpoint returns nil when no breakpoint is set at addr.
	Breakpoint(addr uint64) Breakpoint
	Breakpoints() []Breakpoint
}

// Config carries construction options.
type Config struct {
	Logger logrus.FieldLogger
}

type Option func(*Config)

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Config) { c.Logger = log }
}

// Ctor builds a process for one architecture. Registered by the
// architecture packages.
type Ctor func(api debugapi.DebugAPI, pid int, info debugapi.ProcessInfo, cfg Config) (Process, EventSink, error)

var procMap = make(map[string]Ctor)

func Register(arch string, ctor Ctor) bool {
	if _, ok := procMap[arch]; ok {
		return false
	}
	procMap[arch] = ctor
	return true
}

// Attach puts the target under debugger control and returns the public
// Process together with the privileged EventSink for the driver loop.
func Attach(api debugapi.DebugAPI, pid int, opts ...Option) (Process, EventSink, error) {
	info, err := api.Attach(pid)
	if err != nil {
		return nil, nil, err
	}
	ctor, ok := procMap[info.Arch]
	if !ok {
		api.Detach(pid)
		return nil, nil, ErrArchUnsupported
	}
	cfg := Config{Logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return ctor(api, pid, info, cfg)
}
