package process

// archInfo carries the trap-instruction metadata the core needs per
// debuggee architecture.
type archInfo struct {
	name             string
	wordSizeBits     int
	breakInstruction []byte
	// breakInstrMovesPC reports whether the CPU leaves the program
	// counter past the trap after a breakpoint exception; only then does
	// compatibility mode have anything to rewind.
	breakInstrMovesPC bool
}

func (a archInfo) breakpointSize() uint64 {
	return uint64(len(a.breakInstruction))
}

var (
	amd64 = archInfo{
		name:              "amd64",
		wordSizeBits:      64,
		breakInstruction:  []byte{0xCC},
		breakInstrMovesPC: true,
	}
	i386 = archInfo{
		name:              "386",
		wordSizeBits:      32,
		breakInstruction:  []byte{0xCC},
		breakInstrMovesPC: true,
	}
)
