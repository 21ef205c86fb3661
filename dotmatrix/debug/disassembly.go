package debug

import (
	"github.com/dmgcore/go-dotmatrix/dotmatrix/disasm"
)

// lookBehind is how many bytes before PC decoding starts, so the window
// shows context above the current instruction.
const lookBehind = 30

type DisasmLine struct {
	Address     uint16
	Instruction string
	IsCurrent   bool
}

// DisasmBuffer holds reusable line slices so per-frame disassembly does not
// allocate.
type DisasmBuffer struct {
	Lines    []DisasmLine
	AllLines []DisasmLine
}

func NewDisasmBuffer(maxLines int) *DisasmBuffer {
	return &DisasmBuffer{
		Lines:    make([]DisasmLine, 0, maxLines),
		AllLines: make([]DisasmLine, 0, maxLines*3),
	}
}

func CreateDisassembly(snapshot *MemorySnapshot, pc uint16, maxLines int) []DisasmLine {
	return CreateDisassemblyWithBuffer(snapshot, pc, maxLines, NewDisasmBuffer(maxLines))
}

// CreateDisassemblyWithBuffer decodes the snapshot into at most maxLines
// instruction lines centered on PC. When PC falls outside the snapshot the
// whole window is decoded from the start with a marker line appended.
func CreateDisassemblyWithBuffer(snapshot *MemorySnapshot, pc uint16, maxLines int, buf *DisasmBuffer) []DisasmLine {
	if snapshot == nil {
		return nil
	}

	if pc < snapshot.StartAddr || pc >= snapshot.StartAddr+uint16(len(snapshot.Bytes)) {
		return disassembleUnanchored(snapshot, pc, maxLines, buf)
	}

	// Back up a little so the window shows context above PC. Decoding may
	// start mid-instruction; the closest-line centering below covers that.
	start := int(pc-snapshot.StartAddr) - lookBehind
	if start < 0 {
		start = 0
	}

	buf.AllLines = buf.AllLines[:0]
	for i := start; i < len(snapshot.Bytes); {
		address := snapshot.StartAddr + uint16(i)
		instruction, length := disasm.DisassembleBytes(snapshot.Bytes, i)
		buf.AllLines = append(buf.AllLines, DisasmLine{
			Address:     address,
			Instruction: instruction,
			IsCurrent:   address == pc,
		})
		i += length
		if address > pc && len(buf.AllLines) > maxLines*2 {
			break
		}
	}
	if len(buf.AllLines) == 0 {
		return buf.AllLines
	}

	// Center on PC's own line. When decoding skipped over PC because the
	// backward start landed mid-instruction, the nearest decoded line wins.
	buf.Lines = clampWindow(buf.AllLines, closestLine(buf.AllLines, pc), maxLines, buf.Lines)
	return buf.Lines
}

// disassembleUnanchored decodes from the start of the snapshot and appends a
// marker line, used when PC does not fall inside the captured range.
func disassembleUnanchored(snapshot *MemorySnapshot, pc uint16, maxLines int, buf *DisasmBuffer) []DisasmLine {
	buf.Lines = buf.Lines[:0]
	for i := 0; i < len(snapshot.Bytes) && len(buf.Lines) < maxLines-1; {
		instruction, length := disasm.DisassembleBytes(snapshot.Bytes, i)
		buf.Lines = append(buf.Lines, DisasmLine{
			Address:     snapshot.StartAddr + uint16(i),
			Instruction: instruction,
		})
		i += length
	}
	buf.Lines = append(buf.Lines, DisasmLine{
		Address:     pc,
		Instruction: "[PC outside snapshot range]",
		IsCurrent:   true,
	})
	return buf.Lines
}

// closestLine returns the index of the line whose address is nearest to pc.
func closestLine(lines []DisasmLine, pc uint16) int {
	best := 0
	bestDist := uint16(0xFFFF)
	for i, line := range lines {
		dist := line.Address - pc
		if line.Address < pc {
			dist = pc - line.Address
		}
		if dist < bestDist {
			bestDist = dist
			best = i
		}
	}
	return best
}

// clampWindow copies maxLines entries centered on centerIdx into dst,
// shifting the window when it would run past either end.
func clampWindow(lines []DisasmLine, centerIdx, maxLines int, dst []DisasmLine) []DisasmLine {
	half := maxLines / 2
	start := centerIdx - half
	end := centerIdx + half + 1
	if start < 0 {
		start = 0
		end = maxLines
	}
	if end > len(lines) {
		end = len(lines)
		start = max(end-maxLines, 0)
	}
	return append(dst[:0], lines[start:end]...)
}
