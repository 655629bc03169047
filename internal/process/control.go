package process

import (
	"fmt"

	"github.com/nexedbg/nexedbg/process"
)

func (p *DebuggeeProcess) Continue() error {
	return p.resume(false)
}

func (p *DebuggeeProcess) ContinueAndPassException() error {
	return p.resume(true)
}

func (p *DebuggeeProcess) resume(passException bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireHalted(); err != nil {
		return err
	}
	tid := p.stoppedTid()
	if err := p.api.ContinueDebugEvent(p.id, tid, passException); err != nil {
		return fmt.Errorf("continue: %w", err)
	}
	p.setHalted(nil)
	p.state = process.StateRunning
	p.log.WithField("tid", tid).Debug("continued")
	return nil
}

// SingleStep arms a one-instruction step and resumes. The process runs
// until the step completion arrives as the next stopping event.
func (p *DebuggeeProcess) SingleStep() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireHalted(); err != nil {
		return err
	}
	tid := p.stoppedTid()
	if err := p.api.SingleStep(p.id, tid); err != nil {
		return fmt.Errorf("single step: %w", err)
	}
	p.setHalted(nil)
	p.state = process.StateRunning
	p.log.WithField("tid", tid).Debug("single step armed")
	return nil
}

// Break asks the OS to stop the running process. The halt arrives later
// through the dispatcher.
func (p *DebuggeeProcess) Break() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case process.StateDead:
		return process.ErrProcessDead
	case process.StateHalted:
		return process.ErrHalted
	}
	if err := p.api.BreakProcess(p.id); err != nil {
		return fmt.Errorf("break: %w", err)
	}
	p.log.Debug("break requested")
	return nil
}

// Kill requests termination of every thread. The process stays non-dead
// until the exit event is dispatched; queries in between see
// stale-but-consistent state.
func (p *DebuggeeProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == process.StateDead {
		return process.ErrProcessDead
	}
	if err := p.api.TerminateProcess(p.id); err != nil {
		return fmt.Errorf("kill: %w", err)
	}
	p.log.Debug("kill requested")
	return nil
}

// Detach releases debugger control without killing the target. Breakpoint
// patches are restored first when a write window exists (halted); a
// running process is detached as-is.
func (p *DebuggeeProcess) Detach() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == process.StateDead {
		return process.ErrProcessDead
	}
	if p.state == process.StateHalted {
		for _, bp := range p.breakpoints {
			if err := p.api.WriteProcessMemory(p.id, bp.addr, []byte{bp.originalByte}); err != nil {
				p.log.WithField("addr", fmt.Sprintf("%#x", bp.addr)).
					WithError(err).Warn("breakpoint left installed on detach")
			}
		}
	}
	err := p.api.Detach(p.id)
	p.markDead()
	p.log.Debug("detached")
	return err
}

// stoppedTid is the thread the current event stopped; falls back to the
// event's thread when no thread carries the halted marker. Caller holds
// the lock.
func (p *DebuggeeProcess) stoppedTid() int {
	if p.halted != nil {
		return p.halted.id
	}
	if p.lastEvent != nil {
		return p.lastEvent.Tid
	}
	return p.id
}
