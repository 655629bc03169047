// Package x86 registers the 386 and amd64 debuggee-process constructors.
// Import it for side effects before calling process.Attach.
package x86

import (
	internal "github.com/nexedbg/nexedbg/internal/process"
	"github.com/nexedbg/nexedbg/process"
)

var (
	_ = process.Register("amd64", internal.NewAMD64)
	_ = process.Register("386", internal.NewI386)
)
