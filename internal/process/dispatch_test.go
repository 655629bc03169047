package process

import (
	"testing"

	"github.com/nexedbg/nexedbg/debugapi"
	"github.com/nexedbg/nexedbg/process"
)

func TestModuleLoadIsAnUpdate(t *testing.T) {
	p, sink, _ := newTestProcess(t)

	sink.OnDebugEvent(&debugapi.DebugEvent{
		Kind:        debugapi.EventLoadModule,
		Pid:         testPid,
		ModuleBase:  testBase,
		ModuleEntry: testBase + 0x40,
	})
	// A rare reload replaces, it does not error.
	sink.OnDebugEvent(&debugapi.DebugEvent{
		Kind:        debugapi.EventLoadModule,
		Pid:         testPid,
		ModuleBase:  testBase + 0x1000,
		ModuleEntry: testBase + 0x1040,
	})

	if got := p.NexeMemBase(); got != testBase+0x1000 {
		t.Errorf("NexeMemBase() = %#x, want %#x", got, testBase+0x1000)
	}
	if got := p.NexeEntryPoint(); got != testBase+0x1040 {
		t.Errorf("NexeEntryPoint() = %#x, want %#x", got, testBase+0x1040)
	}
}

func TestModuleUnloadKeepsBase(t *testing.T) {
	p, sink, _ := newTestProcess(t)

	sink.OnDebugEvent(&debugapi.DebugEvent{Kind: debugapi.EventLoadModule, Pid: testPid, ModuleBase: testBase})
	sink.OnDebugEvent(&debugapi.DebugEvent{Kind: debugapi.EventUnloadModule, Pid: testPid, ModuleBase: testBase})

	if got := p.NexeMemBase(); got != testBase {
		t.Errorf("NexeMemBase() = %#x after unload, want %#x", got, testBase)
	}
}

// The full compatibility-mode scenario: module load, breakpoint at a nexe
// address, hit, and the halted thread's program counter rewound by the
// trap width.
func TestBreakpointHitCompatibilityMode(t *testing.T) {
	p, sink, api := newTestProcess(t)
	bpAddr := testBase + 0x10
	api.SetMemory(bpAddr, []byte{0x90})
	api.SetPC(testTid, bpAddr)
	p.EnableCompatibilityMode()

	sink.OnDebugEvent(&debugapi.DebugEvent{Kind: debugapi.EventLoadModule, Pid: testPid, ModuleBase: testBase})
	haltOnGeneric(sink, testTid)
	if err := p.SetBreakpoint(bpAddr); err != nil {
		t.Fatalf("set breakpoint: %v", err)
	}
	if err := p.Continue(); err != nil {
		t.Fatalf("continue: %v", err)
	}

	sink.OnDebugEvent(&debugapi.DebugEvent{
		Kind:          debugapi.EventException,
		Pid:           testPid,
		Tid:           testTid,
		Exception:     debugapi.ExceptionBreakpoint,
		ExceptionAddr: bpAddr,
	})

	if p.State() != process.StateHalted {
		t.Fatalf("State() = %v, want halted", p.State())
	}
	if ht := p.HaltedThread(); ht == nil || ht.ID() != testTid {
		t.Fatalf("HaltedThread() = %v, want thread %d", ht, testTid)
	}
	if got, want := api.PC(testTid), bpAddr-1; got != want {
		t.Errorf("PC = %#x, want %#x (rewound by the trap width)", got, want)
	}
}

func TestNoRewindWithoutCompatibilityMode(t *testing.T) {
	p, sink, api := newTestProcess(t)
	bpAddr := testBase + 0x10
	api.SetPC(testTid, bpAddr)

	haltOnGeneric(sink, testTid)
	if err := p.SetBreakpoint(bpAddr); err != nil {
		t.Fatalf("set breakpoint: %v", err)
	}
	if err := p.Continue(); err != nil {
		t.Fatalf("continue: %v", err)
	}
	sink.OnDebugEvent(&debugapi.DebugEvent{
		Kind:          debugapi.EventException,
		Pid:           testPid,
		Tid:           testTid,
		Exception:     debugapi.ExceptionBreakpoint,
		ExceptionAddr: bpAddr,
	})

	if got := api.PC(testTid); got != bpAddr {
		t.Errorf("PC = %#x, want untouched %#x", got, bpAddr)
	}
}

func TestNoRewindForForeignBreakpoint(t *testing.T) {
	p, sink, api := newTestProcess(t)
	addr := testBase + 0x10
	api.SetPC(testTid, addr)
	p.EnableCompatibilityMode()

	// A breakpoint exception at an address we never instrumented (e.g.
	// the debuggee's own int3) must not move the program counter.
	sink.OnDebugEvent(&debugapi.DebugEvent{
		Kind:          debugapi.EventException,
		Pid:           testPid,
		Tid:           testTid,
		Exception:     debugapi.ExceptionBreakpoint,
		ExceptionAddr: addr,
	})

	if got := api.PC(testTid); got != addr {
		t.Errorf("PC = %#x, want untouched %#x", got, addr)
	}
}

func TestLastDebugEventOverwritten(t *testing.T) {
	p, sink, _ := newTestProcess(t)

	sink.OnDebugEvent(&debugapi.DebugEvent{Kind: debugapi.EventCreateProcess, Pid: testPid, Tid: 10})
	sink.OnDebugEvent(&debugapi.DebugEvent{Kind: debugapi.EventLoadModule, Pid: testPid, ModuleBase: testBase})

	ev := p.LastDebugEvent()
	if ev == nil || ev.Kind != debugapi.EventLoadModule {
		t.Errorf("LastDebugEvent() = %+v, want the load-module event", ev)
	}
}

func TestExitEventDestroysOwnership(t *testing.T) {
	p, sink, _ := newTestProcess(t)
	sink.OnDebugEvent(&debugapi.DebugEvent{Kind: debugapi.EventCreateProcess, Pid: testPid, Tid: 10})
	haltOnGeneric(sink, 10)
	if err := p.SetBreakpoint(testBase); err != nil {
		t.Fatalf("set breakpoint: %v", err)
	}

	sink.OnDebugEvent(&debugapi.DebugEvent{Kind: debugapi.EventExitProcess, Pid: testPid, Tid: 10, ExitCode: 1})

	if p.State() != process.StateDead {
		t.Fatalf("State() = %v, want dead", p.State())
	}
	if n := len(p.ThreadIDs()); n != 0 {
		t.Errorf("%d threads survive their process, want 0", n)
	}
	if n := len(p.Breakpoints()); n != 0 {
		t.Errorf("%d breakpoints survive their process, want 0", n)
	}
	if p.HaltedThread() != nil {
		t.Error("HaltedThread() != nil on a dead process")
	}
}

func TestReentrantStoppingDispatchPanics(t *testing.T) {
	_, sink, _ := newTestProcess(t)
	haltOnGeneric(sink, testTid)

	defer func() {
		if recover() == nil {
			t.Error("second stopping event without a control call did not panic")
		}
	}()
	haltOnGeneric(sink, testTid)
}
