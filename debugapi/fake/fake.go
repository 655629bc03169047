// Package fake provides an in-memory debugapi.DebugAPI with no operating
// system behind it. Tests map regions of fake debuggee memory, queue debug
// events, and inspect the control calls the core issued.
package fake

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nexedbg/nexedbg/debugapi"
)

const pageSize = 0x1000

// Continue records one ContinueDebugEvent call.
type Continue struct {
	Tid           int
	PassException bool
}

type API struct {
	mu     sync.Mutex
	info   debugapi.ProcessInfo
	mem    map[uint64][]byte // region base -> backing
	regs   map[int]uint64    // tid -> pc
	events chan debugapi.DebugEvent

	Continues []Continue
	Steps     []int
	Breaks    int
	Kills     int
	Detaches  int
	Attached  bool
	writeFail bool
}

func New() *API {
	return &API{
		info:   debugapi.ProcessInfo{WordSizeBits: 64, Arch: "amd64"},
		mem:    make(map[uint64][]byte),
		regs:   make(map[int]uint64),
		events: make(chan debugapi.DebugEvent, 64),
	}
}

// SetProcessInfo overrides what Attach reports.
func (a *API) SetProcessInfo(info debugapi.ProcessInfo) {
	a.mu.Lock()
	a.info = info
	a.mu.Unlock()
}

// MapRegion backs [base, base+size) with zeroed fake memory. The size is
// rounded up to a page.
func (a *API) MapRegion(base uint64, size int) {
	a.mu.Lock()
	a.mem[base] = make([]byte, debugapi.Align(size, pageSize))
	a.mu.Unlock()
}

// SetMemory writes raw bytes, bypassing any notion of breakpoints. The
// range must be mapped.
func (a *API) SetMemory(addr uint64, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	region, off := a.locate(addr, len(data))
	if region == nil {
		panic(fmt.Sprintf("fake: SetMemory outside mapped regions: %#x", addr))
	}
	copy(region[off:], data)
}

// Memory returns a raw copy of live fake memory, trap bytes included.
func (a *API) Memory(addr uint64, size int) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	region, off := a.locate(addr, size)
	if region == nil {
		panic(fmt.Sprintf("fake: Memory outside mapped regions: %#x", addr))
	}
	out := make([]byte, size)
	copy(out, region[off:])
	return out
}

// SetPC seeds the register context of a thread.
func (a *API) SetPC(tid int, pc uint64) {
	a.mu.Lock()
	a.regs[tid] = pc
	a.mu.Unlock()
}

// PC reads back a thread's program counter.
func (a *API) PC(tid int) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.regs[tid]
}

// QueueEvent appends an event for WaitForDebugEvent to deliver.
func (a *API) QueueEvent(ev debugapi.DebugEvent) {
	a.events <- ev
}

// FailWrites makes every WriteProcessMemory call fail until re-enabled.
func (a *API) FailWrites(fail bool) {
	a.mu.Lock()
	a.writeFail = fail
	a.mu.Unlock()
}

// locate returns the region backing [addr, addr+size) or nil. Caller holds
// the lock.
func (a *API) locate(addr uint64, size int) ([]byte, int) {
	for base, region := range a.mem {
		if addr >= base && addr+uint64(size) <= base+uint64(len(region)) {
			return region, int(addr - base)
		}
	}
	return nil, 0
}

func (a *API) Attach(pid int) (debugapi.ProcessInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Attached = true
	return a.info, nil
}

func (a *API) Detach(pid int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.Attached {
		return debugapi.ErrNotAttached
	}
	a.Attached = false
	a.Detaches++
	return nil
}

func (a *API) ContinueDebugEvent(pid, tid int, passException bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Continues = append(a.Continues, Continue{Tid: tid, PassException: passException})
	return nil
}

func (a *API) SingleStep(pid, tid int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Steps = append(a.Steps, tid)
	return nil
}

func (a *API) BreakProcess(pid int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Breaks++
	return nil
}

func (a *API) TerminateProcess(pid int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Kills++
	return nil
}

func (a *API) ReadProcessMemory(pid int, addr uint64, buf []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	region, off := a.locate(addr, len(buf))
	if region == nil {
		return fmt.Errorf("%w: %d bytes at %#x", debugapi.ErrMemoryAccess, len(buf), addr)
	}
	copy(buf, region[off:])
	return nil
}

func (a *API) WriteProcessMemory(pid int, addr uint64, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.writeFail {
		return fmt.Errorf("%w: write disabled at %#x", debugapi.ErrMemoryAccess, addr)
	}
	region, off := a.locate(addr, len(data))
	if region == nil {
		return fmt.Errorf("%w: %d bytes at %#x", debugapi.ErrMemoryAccess, len(data), addr)
	}
	copy(region[off:], data)
	return nil
}

// Registers is the fake register context.
type Registers struct {
	pc uint64
}

func (r *Registers) PC() uint64      { return r.pc }
func (r *Registers) SetPC(pc uint64) { r.pc = pc }

func (a *API) ReadRegisters(pid, tid int) (debugapi.Registers, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pc, ok := a.regs[tid]
	if !ok {
		return nil, fmt.Errorf("%w: tid %d", debugapi.ErrThreadContext, tid)
	}
	return &Registers{pc: pc}, nil
}

func (a *API) WriteRegisters(pid, tid int, regs debugapi.Registers) error {
	r, ok := regs.(*Registers)
	if !ok {
		return errors.New("fake: foreign register context")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.regs[tid]; !ok {
		return fmt.Errorf("%w: tid %d", debugapi.ErrThreadContext, tid)
	}
	a.regs[tid] = r.pc
	return nil
}

func (a *API) WaitForDebugEvent(ctx context.Context) (debugapi.DebugEvent, error) {
	select {
	case <-ctx.Done():
		return debugapi.DebugEvent{}, ctx.Err()
	case ev := <-a.events:
		return ev, nil
	}
}

func (a *API) Close() error {
	return nil
}
