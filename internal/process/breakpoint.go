package process

import (
	"fmt"

	"github.com/nexedbg/nexedbg/process"
)

// Breakpoint owns the byte the trap encoding displaced. The stored byte is
// what ReadMemory shows at the address and what removal writes back, so a
// WriteMemory over the address updates it in place of live memory.
type Breakpoint struct {
	addr         uint64
	originalByte byte
}

func (bp *Breakpoint) Addr() uint64 { return bp.addr }

func (bp *Breakpoint) OriginalByte() byte { return bp.originalByte }

func (p *DebuggeeProcess) SetBreakpoint(addr uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireHalted(); err != nil {
		return err
	}
	if _, ok := p.breakpoints[addr]; ok {
		return process.ErrBreakpointExists
	}
	var orig [1]byte
	if err := p.api.ReadProcessMemory(p.id, addr, orig[:]); err != nil {
		return fmt.Errorf("set breakpoint at %#x: %w", addr, err)
	}
	if err := p.api.WriteProcessMemory(p.id, addr, p.arch.breakInstruction); err != nil {
		return fmt.Errorf("set breakpoint at %#x: %w", addr, err)
	}
	p.breakpoints[addr] = &Breakpoint{addr: addr, originalByte: orig[0]}
	p.log.WithField("addr", fmt.Sprintf("%#x", addr)).Debug("breakpoint set")
	return nil
}

func (p *DebuggeeProcess) RemoveBreakpoint(addr uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireHalted(); err != nil {
		return err
	}
	bp, ok := p.breakpoints[addr]
	if !ok {
		return process.ErrBreakpointNotFound
	}
	if err := p.api.WriteProcessMemory(p.id, addr, []byte{bp.originalByte}); err != nil {
		return fmt.Errorf("remove breakpoint at %#x: %w", addr, err)
	}
	delete(p.breakpoints, addr)
	p.log.WithField("addr", fmt.Sprintf("%#x", addr)).Debug("breakpoint removed")
	return nil
}

func (p *DebuggeeProcess) Breakpoint(addr uint64) process.Breakpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	if bp, ok := p.breakpoints[addr]; ok {
		return bp
	}
	return nil
}

func (p *DebuggeeProcess) Breakpoints() []process.Breakpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]process.Breakpoint, 0, len(p.breakpoints))
	for _, bp := range p.breakpoints {
		out = append(out, bp)
	}
	return out
}
