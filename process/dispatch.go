package process

import "github.com/nexedbg/nexedbg/debugapi"

// EventSink is the privileged dispatch capability. Only Attach returns it
// and nothing on Process recovers it, so ordinary holders of a Process
// cannot inject events; the driver that owns the OS wait loop feeds every
// event it receives through here.
//
// Dispatch is not reentrant: after a stopping event the driver must issue
// a control operation before delivering the next event for the same
// process. Violations are programming errors and panic.
type EventSink interface {
	OnDebugEvent(ev *debugapi.DebugEvent)
}
