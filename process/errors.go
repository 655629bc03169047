package process

import "errors"

var (
	ErrNotHalted          = errors.New("process not halted")
	ErrHalted             = errors.New("process already halted")
	ErrProcessDead        = errors.New("process is dead")
	ErrBreakpointExists   = errors.New("breakpoint already set")
	ErrBreakpointNotFound = errors.New("breakpoint not found")
	ErrNotDebugString     = errors.New("last event is not a debug string")
	ErrArchUnsupported    = errors.New("architecture unsupported")
)
