package debug

// CPUState is a copy of the processor registers for display purposes.
type CPUState struct {
	A uint8
	F uint8
	B uint8
	C uint8
	D uint8
	E uint8
	H uint8
	L uint8

	SP     uint16
	PC     uint16
	IME    bool
	Cycles uint64
}

// MemorySnapshot is a contiguous run of bus bytes, used as disassembly input.
type MemorySnapshot struct {
	StartAddr uint16
	Bytes     []uint8
}

// DebuggerState tells display code how execution is currently gated.
type DebuggerState int

const (
	DebuggerRunning DebuggerState = iota
	DebuggerPaused
	DebuggerStepInstruction
	DebuggerStepFrame
)

// Data bundles everything the debug overlays render in one frame: sprite
// table, tile patterns, palettes, audio state, registers and a window of
// memory around PC. Any pointer field may be nil when the machine has
// nothing to report.
type Data struct {
	OAM             *OAMData
	VRAM            *VRAMData
	Palettes        *PaletteVisualizer
	Audio           *AudioData
	CPU             *CPUState
	Memory          *MemorySnapshot
	DebuggerState   DebuggerState
	InterruptEnable uint8 // IE register at 0xFFFF
	InterruptFlags  uint8 // IF register at 0xFF0F
}
