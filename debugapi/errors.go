package debugapi

import "errors"

var (
	ErrNotAttached   = errors.New("process not attached")
	ErrMemoryAccess  = errors.New("memory access fault")
	ErrThreadContext = errors.New("thread context unavailable")
)
