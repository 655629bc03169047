package process

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"github.com/nexedbg/nexedbg/debugapi"
	"github.com/nexedbg/nexedbg/encoding"
	"github.com/nexedbg/nexedbg/process"
)

// ReadMemory copies debuggee memory into buf, masking installed trap bytes
// with the displaced originals. Legal in any state except dead; only
// meaningful while halted.
func (p *DebuggeeProcess) ReadMemory(addr uint64, buf []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readMemory(addr, buf)
}

// readMemory is ReadMemory with the lock held.
func (p *DebuggeeProcess) readMemory(addr uint64, buf []byte) error {
	if p.state == process.StateDead {
		return process.ErrProcessDead
	}
	if err := p.api.ReadProcessMemory(p.id, addr, buf); err != nil {
		return err
	}
	end := addr + uint64(len(buf))
	for _, bp := range p.breakpoints {
		if bp.addr >= addr && bp.addr < end {
			buf[bp.addr-addr] = bp.originalByte
		}
	}
	return nil
}

// WriteMemory copies data into debuggee memory. Bytes aimed at a
// breakpointed address land in the stored original byte; the live trap
// encoding stays in place until the breakpoint is removed.
func (p *DebuggeeProcess) WriteMemory(addr uint64, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireHalted(); err != nil {
		return err
	}
	end := addr + uint64(len(data))
	patched := data
	var pending map[*Breakpoint]byte
	for _, bp := range p.breakpoints {
		if bp.addr < addr || bp.addr >= end {
			continue
		}
		if pending == nil {
			patched = slices.Clone(data)
			pending = make(map[*Breakpoint]byte)
		}
		off := bp.addr - addr
		pending[bp] = patched[off]
		patched[off] = p.arch.breakInstruction[0]
	}
	if err := p.api.WriteProcessMemory(p.id, addr, patched); err != nil {
		return err
	}
	// Commit the logical bytes only after the write landed, so a failed
	// write leaves the table untouched.
	for bp, b := range pending {
		bp.originalByte = b
	}
	return nil
}

// ReadObject extracts a typed value from debuggee memory at addr. Reads
// are breakpoint-transparent like ReadMemory.
func (p *DebuggeeProcess) ReadObject(addr uint64, val any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == process.StateDead {
		return process.ErrProcessDead
	}
	return encoding.Extract(&memReader{p: p, addr: addr}, val, p.wordSizeBits/8)
}

// ReadDebugString transfers the string carried by the current debug-string
// event out of debuggee memory.
func (p *DebuggeeProcess) ReadDebugString() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ev := p.lastEvent
	if ev == nil || ev.Kind != debugapi.EventDebugString {
		return "", process.ErrNotDebugString
	}
	buf := make([]byte, ev.StringLen)
	if err := p.readMemory(ev.StringAddr, buf); err != nil {
		return "", fmt.Errorf("read debug string: %w", err)
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf), nil
}

// memReader streams debuggee memory for encoding.Extract. Caller holds the
// process lock for the duration of the extraction.
type memReader struct {
	p    *DebuggeeProcess
	addr uint64
}

func (r *memReader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if err := r.p.readMemory(r.addr, b); err != nil {
		return 0, err
	}
	r.addr += uint64(len(b))
	return len(b), nil
}

var _ io.Reader = (*memReader)(nil)
