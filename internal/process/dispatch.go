package process

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nexedbg/nexedbg/debugapi"
	"github.com/nexedbg/nexedbg/process"
)

// eventSink carries the dispatch capability separately from the public
// Process value; only process.Attach hands it out.
type eventSink struct {
	p *DebuggeeProcess
}

func (s *eventSink) OnDebugEvent(ev *debugapi.DebugEvent) {
	s.p.onDebugEvent(ev)
}

func (p *DebuggeeProcess) onDebugEvent(ev *debugapi.DebugEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastEvent = ev
	p.log.WithFields(logrus.Fields{"tid": ev.Tid, "event": ev.Kind.String()}).Debug("debug event")
	switch ev.Kind {
	case debugapi.EventCreateProcess, debugapi.EventCreateThread:
		p.addThread(ev.Tid)
	case debugapi.EventExitThread:
		p.removeThread(ev.Tid)
	case debugapi.EventExitProcess:
		p.markDead()
	case debugapi.EventLoadModule:
		// Reloads are updates, not errors.
		p.nexeMemBase = ev.ModuleBase
		p.nexeEntry = ev.ModuleEntry
		p.nexeLoaded = true
	case debugapi.EventUnloadModule:
		// Base and entry point persist past unload.
	case debugapi.EventException:
		p.haltOn(ev)
	case debugapi.EventDebugString:
		// Stored above; no state transition.
	}
}

// haltOn transitions to halted on a stopping event and applies the
// compatibility-mode program-counter rewind on recognized breakpoint
// hits. Caller holds the lock.
func (p *DebuggeeProcess) haltOn(ev *debugapi.DebugEvent) {
	switch p.state {
	case process.StateHalted:
		// Second event without an intervening control operation: the
		// driver contract is broken and continuing would corrupt the
		// halted-thread bookkeeping.
		panic("process: debug event dispatched while halted")
	case process.StateDead:
		p.log.WithField("tid", ev.Tid).Warn("exception for dead process dropped")
		return
	}
	// The OS can report a thread whose create event we never saw.
	t := p.addThread(ev.Tid)
	p.setHalted(t)
	p.state = process.StateHalted
	if ev.Exception != debugapi.ExceptionBreakpoint || !p.compat || !p.arch.breakInstrMovesPC {
		return
	}
	if _, ok := p.breakpoints[ev.ExceptionAddr]; !ok {
		return
	}
	p.rewindPC(ev.Tid)
}

// rewindPC moves the halted thread's program counter back by the trap
// width so resuming re-executes the displaced instruction. Caller holds
// the lock.
func (p *DebuggeeProcess) rewindPC(tid int) {
	regs, err := p.api.ReadRegisters(p.id, tid)
	if err != nil {
		p.log.WithField("tid", tid).WithError(err).Warn("compatibility mode: read registers")
		return
	}
	pc := regs.PC() - p.arch.breakpointSize()
	regs.SetPC(pc)
	if err := p.api.WriteRegisters(p.id, tid, regs); err != nil {
		p.log.WithField("tid", tid).WithError(err).Warn("compatibility mode: write registers")
		return
	}
	p.log.WithFields(logrus.Fields{"tid": tid, "pc": fmt.Sprintf("%#x", pc)}).Debug("program counter rewound")
}
