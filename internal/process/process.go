// Package process holds the concrete debuggee-process implementation
// behind the public capability interfaces in the process package.
package process

import (
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"

	"github.com/nexedbg/nexedbg/debugapi"
	"github.com/nexedbg/nexedbg/process"
)

// DebuggeeProcess is the concrete process.Process. One mutex guards the
// run state, the thread registry and the breakpoint table together, which
// makes Break, Kill and Detach safe from any goroutine; Continue,
// SingleStep and the memory operations stay reserved for the goroutine
// that attached.
type DebuggeeProcess struct {
	api          debugapi.DebugAPI
	id           int
	arch         archInfo
	wordSizeBits int
	wow          bool
	log          logrus.FieldLogger

	mu          sync.Mutex
	state       process.State
	compat      bool
	nexeMemBase uint64
	nexeEntry   uint64
	nexeLoaded  bool
	lastEvent   *debugapi.DebugEvent

	breakpoints map[uint64]*Breakpoint
	threads     map[int]*DebuggeeThread
	halted      *DebuggeeThread
}

func NewAMD64(api debugapi.DebugAPI, pid int, info debugapi.ProcessInfo, cfg process.Config) (process.Process, process.EventSink, error) {
	return newProcess(amd64, api, pid, info, cfg)
}

func NewI386(api debugapi.DebugAPI, pid int, info debugapi.ProcessInfo, cfg process.Config) (process.Process, process.EventSink, error) {
	return newProcess(i386, api, pid, info, cfg)
}

func newProcess(arch archInfo, api debugapi.DebugAPI, pid int, info debugapi.ProcessInfo, cfg process.Config) (process.Process, process.EventSink, error) {
	wordSize := info.WordSizeBits
	if wordSize == 0 {
		wordSize = arch.wordSizeBits
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	p := &DebuggeeProcess{
		api:          api,
		id:           pid,
		arch:         arch,
		wordSizeBits: wordSize,
		wow:          info.WoW,
		log:          log.WithField("pid", pid),
		state:        process.StateRunning,
		breakpoints:  make(map[uint64]*Breakpoint),
		threads:      make(map[int]*DebuggeeThread),
	}
	return p, &eventSink{p: p}, nil
}

func (p *DebuggeeProcess) ID() int { return p.id }

func (p *DebuggeeProcess) State() process.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *DebuggeeProcess) IsHalted() bool {
	return p.State() == process.StateHalted
}

func (p *DebuggeeProcess) EnableCompatibilityMode() {
	p.mu.Lock()
	p.compat = true
	p.mu.Unlock()
}

func (p *DebuggeeProcess) CompatibilityMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.compat
}

func (p *DebuggeeProcess) WordSizeBits() int { return p.wordSizeBits }

func (p *DebuggeeProcess) IsWoW() bool { return p.wow }

func (p *DebuggeeProcess) LastDebugEvent() *debugapi.DebugEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastEvent
}

func (p *DebuggeeProcess) NexeMemBase() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nexeMemBase
}

func (p *DebuggeeProcess) NexeEntryPoint() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nexeEntry
}

func (p *DebuggeeProcess) FromNexeToFlatAddress(ptr uint64) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.nexeLoaded {
		// Already flat; safe no-op for non-sandboxed threads.
		return ptr
	}
	flat := p.nexeMemBase + ptr
	if p.wordSizeBits == 32 {
		flat = uint64(uint32(flat))
	}
	return flat
}

func (p *DebuggeeProcess) Thread(id int) process.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.threads[id]; ok {
		return t
	}
	return nil
}

func (p *DebuggeeProcess) HaltedThread() process.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.halted == nil {
		return nil
	}
	return p.halted
}

func (p *DebuggeeProcess) ThreadIDs() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := maps.Keys(p.threads)
	slices.Sort(ids)
	return ids
}

// requireHalted is the common precondition of the halted-only operations.
// Caller holds the lock.
func (p *DebuggeeProcess) requireHalted() error {
	switch p.state {
	case process.StateDead:
		return process.ErrProcessDead
	case process.StateHalted:
		return nil
	}
	return process.ErrNotHalted
}

// markDead drops everything the process owns. Caller holds the lock.
func (p *DebuggeeProcess) markDead() {
	p.state = process.StateDead
	p.halted = nil
	p.threads = make(map[int]*DebuggeeThread)
	p.breakpoints = make(map[uint64]*Breakpoint)
}
