//go:build linux && amd64

package debugapi

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

const wordSize = 8

// PtraceAPI implements DebugAPI on Linux. ptrace ties a tracee to the
// tracing thread, so the driver goroutine that attaches must lock itself
// to its OS thread and issue every subsequent call from there.
//
// Linux has no module-load or debug-string events; this backend never
// emits those kinds. Thread creation is observed via PTRACE_O_TRACECLONE
// and reported without stopping the process.
type PtraceAPI struct {
	mu       sync.Mutex
	attached map[int]bool // pids we are tracing
	owner    map[int]int  // tid -> pid
	stepping map[int]bool
	lastSig  map[int]unix.Signal
}

func NewPtraceAPI() *PtraceAPI {
	return &PtraceAPI{
		attached: make(map[int]bool),
		owner:    make(map[int]int),
		stepping: make(map[int]bool),
		lastSig:  make(map[int]unix.Signal),
	}
}

func (api *PtraceAPI) Attach(pid int) (ProcessInfo, error) {
	if err := unix.PtraceAttach(pid); err != nil {
		return ProcessInfo{}, fmt.Errorf("attach pid %d: %w", pid, err)
	}
	var status unix.WaitStatus
	if _, err := unix.Wait4(pid, &status, unix.WALL, nil); err != nil {
		unix.PtraceDetach(pid)
		return ProcessInfo{}, fmt.Errorf("attach pid %d: wait: %w", pid, err)
	}
	if err := unix.PtraceSetOptions(pid, unix.PTRACE_O_TRACECLONE); err != nil {
		unix.PtraceDetach(pid)
		return ProcessInfo{}, fmt.Errorf("attach pid %d: set options: %w", pid, err)
	}
	api.mu.Lock()
	api.attached[pid] = true
	api.owner[pid] = pid
	api.mu.Unlock()
	return ProcessInfo{WordSizeBits: 64, WoW: false, Arch: "amd64"}, nil
}

func (api *PtraceAPI) Detach(pid int) error {
	api.mu.Lock()
	ok := api.attached[pid]
	delete(api.attached, pid)
	for tid, owner := range api.owner {
		if owner == pid {
			delete(api.owner, tid)
			delete(api.stepping, tid)
			delete(api.lastSig, tid)
		}
	}
	api.mu.Unlock()
	if !ok {
		return ErrNotAttached
	}
	return unix.PtraceDetach(pid)
}

func (api *PtraceAPI) ContinueDebugEvent(pid, tid int, passException bool) error {
	var sig unix.Signal
	if passException {
		api.mu.Lock()
		sig = api.lastSig[tid]
		api.mu.Unlock()
	}
	return unix.PtraceCont(tid, int(sig))
}

func (api *PtraceAPI) SingleStep(pid, tid int) error {
	api.mu.Lock()
	api.stepping[tid] = true
	api.mu.Unlock()
	return unix.PtraceSingleStep(tid)
}

func (api *PtraceAPI) BreakProcess(pid int) error {
	return unix.Kill(pid, unix.SIGSTOP)
}

func (api *PtraceAPI) TerminateProcess(pid int) error {
	return unix.Kill(pid, unix.SIGKILL)
}

func (api *PtraceAPI) ReadProcessMemory(pid int, addr uint64, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	local := unix.Iovec{Base: &buf[0]}
	local.SetLen(len(buf))
	remote := unix.RemoteIovec{Base: uintptr(addr), Len: len(buf)}
	n, err := unix.ProcessVMReadv(pid, []unix.Iovec{local}, []unix.RemoteIovec{remote}, 0)
	if err != nil {
		return fmt.Errorf("%w: %d bytes at %#x: %v", ErrMemoryAccess, len(buf), addr, err)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: short read at %#x", ErrMemoryAccess, addr)
	}
	return nil
}

func (api *PtraceAPI) WriteProcessMemory(pid int, addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	// POKEDATA moves whole words; fetch the aligned span first so bytes
	// around the target range survive.
	start := addr &^ (wordSize - 1)
	end := Align(addr+uint64(len(data)), uint64(wordSize))
	span := make([]byte, end-start)
	if err := api.ReadProcessMemory(pid, start, span); err != nil {
		return err
	}
	copy(span[addr-start:], data)
	for off := uint64(0); off < uint64(len(span)); off += wordSize {
		word := span[off : off+wordSize]
		if _, err := unix.PtracePokeData(pid, uintptr(start+off), word); err != nil {
			return fmt.Errorf("%w: %d bytes at %#x: %v", ErrMemoryAccess, len(data), addr, err)
		}
	}
	return nil
}

type amd64Regs struct {
	regs unix.PtraceRegs
}

func (r *amd64Regs) PC() uint64      { return r.regs.Rip }
func (r *amd64Regs) SetPC(pc uint64) { r.regs.Rip = pc }

func (api *PtraceAPI) ReadRegisters(pid, tid int) (Registers, error) {
	r := new(amd64Regs)
	if err := unix.PtraceGetRegs(tid, &r.regs); err != nil {
		return nil, fmt.Errorf("%w: tid %d: %v", ErrThreadContext, tid, err)
	}
	return r, nil
}

func (api *PtraceAPI) WriteRegisters(pid, tid int, regs Registers) error {
	r, ok := regs.(*amd64Regs)
	if !ok {
		return fmt.Errorf("%w: foreign register context", ErrThreadContext)
	}
	if err := unix.PtraceSetRegs(tid, &r.regs); err != nil {
		return fmt.Errorf("%w: tid %d: %v", ErrThreadContext, tid, err)
	}
	return nil
}

func (api *PtraceAPI) WaitForDebugEvent(ctx context.Context) (DebugEvent, error) {
	for {
		select {
		case <-ctx.Done():
			return DebugEvent{}, ctx.Err()
		default:
		}
		var status unix.WaitStatus
		tid, err := unix.Wait4(-1, &status, unix.WALL, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return DebugEvent{}, fmt.Errorf("wait: %w", err)
		}
		api.mu.Lock()
		pid, known := api.owner[tid]
		isMain := api.attached[tid]
		api.mu.Unlock()
		if !known {
			pid = tid
		}

		switch {
		case status.Exited(), status.Signaled():
			code := status.ExitStatus()
			if status.Signaled() {
				code = int(status.Signal())
			}
			kind := EventExitThread
			if isMain {
				kind = EventExitProcess
			}
			api.mu.Lock()
			delete(api.owner, tid)
			delete(api.stepping, tid)
			delete(api.lastSig, tid)
			if isMain {
				delete(api.attached, tid)
			}
			api.mu.Unlock()
			return DebugEvent{Kind: kind, Pid: pid, Tid: tid, ExitCode: code}, nil

		case status.Stopped():
			sig := status.StopSignal()
			if sig == unix.SIGTRAP && status.TrapCause() == unix.PTRACE_EVENT_CLONE {
				msg, err := unix.PtraceGetEventMsg(tid)
				if err != nil {
					return DebugEvent{}, fmt.Errorf("clone event: %w", err)
				}
				newTid := int(msg)
				api.mu.Lock()
				api.owner[newTid] = pid
				api.mu.Unlock()
				// Informational stop; keep the process moving.
				unix.PtraceCont(newTid, 0)
				unix.PtraceCont(tid, 0)
				return DebugEvent{Kind: EventCreateThread, Pid: pid, Tid: newTid}, nil
			}
			ev := DebugEvent{Kind: EventException, Pid: pid, Tid: tid, ExceptionCode: int(sig)}
			api.mu.Lock()
			stepped := api.stepping[tid]
			delete(api.stepping, tid)
			if sig != unix.SIGTRAP && sig != unix.SIGSTOP {
				api.lastSig[tid] = sig
			} else {
				delete(api.lastSig, tid)
			}
			api.mu.Unlock()
			if sig == unix.SIGTRAP {
				if stepped {
					ev.Exception = ExceptionSingleStep
				} else {
					ev.Exception = ExceptionBreakpoint
				}
				if regs, err := api.ReadRegisters(pid, tid); err == nil {
					pc := regs.PC()
					if ev.Exception == ExceptionBreakpoint && pc > 0 {
						// The CPU leaves RIP past the int3.
						pc--
					}
					ev.ExceptionAddr = pc
				}
			}
			return ev, nil
		}
	}
}

func (api *PtraceAPI) Close() error {
	api.mu.Lock()
	pids := make([]int, 0, len(api.attached))
	for pid := range api.attached {
		pids = append(pids, pid)
	}
	api.mu.Unlock()
	var first error
	for _, pid := range pids {
		if err := api.Detach(pid); err != nil && first == nil {
			first = err
		}
	}
	return first
}
