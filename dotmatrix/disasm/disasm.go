// Package disasm decodes machine code into mnemonic text for the debug
// views. It works on plain byte slices so callers can feed it memory
// snapshots without holding a reference to the bus.
package disasm

import (
	"fmt"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/bit"
)

// operand describes what follows the opcode byte.
type operand uint8

const (
	opNone operand = iota
	opU8           // unsigned immediate byte
	opU16          // little-endian immediate word
	opI8           // signed displacement byte
)

type spec struct {
	text   string
	length int
	arg    operand
}

// regNames indexes the standard operand encoding used by the LD/ALU blocks
// and every CB-prefixed instruction.
var regNames = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}

var aluNames = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}

var rotNames = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}

// primary covers the irregular opcodes; the regular LD and ALU blocks
// (0x40-0xBF) are filled in by init. Entries left zero are holes in the
// opcode map and decode as raw data bytes.
var primary = [256]spec{
	0x00: {"NOP", 1, opNone},
	0x01: {"LD BC,$%04X", 3, opU16},
	0x02: {"LD (BC),A", 1, opNone},
	0x03: {"INC BC", 1, opNone},
	0x04: {"INC B", 1, opNone},
	0x05: {"DEC B", 1, opNone},
	0x06: {"LD B,$%02X", 2, opU8},
	0x07: {"RLCA", 1, opNone},
	0x08: {"LD ($%04X),SP", 3, opU16},
	0x09: {"ADD HL,BC", 1, opNone},
	0x0A: {"LD A,(BC)", 1, opNone},
	0x0B: {"DEC BC", 1, opNone},
	0x0C: {"INC C", 1, opNone},
	0x0D: {"DEC C", 1, opNone},
	0x0E: {"LD C,$%02X", 2, opU8},
	0x0F: {"RRCA", 1, opNone},

	0x10: {"STOP", 2, opNone},
	0x11: {"LD DE,$%04X", 3, opU16},
	0x12: {"LD (DE),A", 1, opNone},
	0x13: {"INC DE", 1, opNone},
	0x14: {"INC D", 1, opNone},
	0x15: {"DEC D", 1, opNone},
	0x16: {"LD D,$%02X", 2, opU8},
	0x17: {"RLA", 1, opNone},
	0x18: {"JR %+d", 2, opI8},
	0x19: {"ADD HL,DE", 1, opNone},
	0x1A: {"LD A,(DE)", 1, opNone},
	0x1B: {"DEC DE", 1, opNone},
	0x1C: {"INC E", 1, opNone},
	0x1D: {"DEC E", 1, opNone},
	0x1E: {"LD E,$%02X", 2, opU8},
	0x1F: {"RRA", 1, opNone},

	0x20: {"JR NZ,%+d", 2, opI8},
	0x21: {"LD HL,$%04X", 3, opU16},
	0x22: {"LD (HL+),A", 1, opNone},
	0x23: {"INC HL", 1, opNone},
	0x24: {"INC H", 1, opNone},
	0x25: {"DEC H", 1, opNone},
	0x26: {"LD H,$%02X", 2, opU8},
	0x27: {"DAA", 1, opNone},
	0x28: {"JR Z,%+d", 2, opI8},
	0x29: {"ADD HL,HL", 1, opNone},
	0x2A: {"LD A,(HL+)", 1, opNone},
	0x2B: {"DEC HL", 1, opNone},
	0x2C: {"INC L", 1, opNone},
	0x2D: {"DEC L", 1, opNone},
	0x2E: {"LD L,$%02X", 2, opU8},
	0x2F: {"CPL", 1, opNone},

	0x30: {"JR NC,%+d", 2, opI8},
	0x31: {"LD SP,$%04X", 3, opU16},
	0x32: {"LD (HL-),A", 1, opNone},
	0x33: {"INC SP", 1, opNone},
	0x34: {"INC (HL)", 1, opNone},
	0x35: {"DEC (HL)", 1, opNone},
	0x36: {"LD (HL),$%02X", 2, opU8},
	0x37: {"SCF", 1, opNone},
	0x38: {"JR C,%+d", 2, opI8},
	0x39: {"ADD HL,SP", 1, opNone},
	0x3A: {"LD A,(HL-)", 1, opNone},
	0x3B: {"DEC SP", 1, opNone},
	0x3C: {"INC A", 1, opNone},
	0x3D: {"DEC A", 1, opNone},
	0x3E: {"LD A,$%02X", 2, opU8},
	0x3F: {"CCF", 1, opNone},

	0xC0: {"RET NZ", 1, opNone},
	0xC1: {"POP BC", 1, opNone},
	0xC2: {"JP NZ,$%04X", 3, opU16},
	0xC3: {"JP $%04X", 3, opU16},
	0xC4: {"CALL NZ,$%04X", 3, opU16},
	0xC5: {"PUSH BC", 1, opNone},
	0xC6: {"ADD A,$%02X", 2, opU8},
	0xC7: {"RST $00", 1, opNone},
	0xC8: {"RET Z", 1, opNone},
	0xC9: {"RET", 1, opNone},
	0xCA: {"JP Z,$%04X", 3, opU16},
	0xCC: {"CALL Z,$%04X", 3, opU16},
	0xCD: {"CALL $%04X", 3, opU16},
	0xCE: {"ADC A,$%02X", 2, opU8},
	0xCF: {"RST $08", 1, opNone},

	0xD0: {"RET NC", 1, opNone},
	0xD1: {"POP DE", 1, opNone},
	0xD2: {"JP NC,$%04X", 3, opU16},
	0xD4: {"CALL NC,$%04X", 3, opU16},
	0xD5: {"PUSH DE", 1, opNone},
	0xD6: {"SUB $%02X", 2, opU8},
	0xD7: {"RST $10", 1, opNone},
	0xD8: {"RET C", 1, opNone},
	0xD9: {"RETI", 1, opNone},
	0xDA: {"JP C,$%04X", 3, opU16},
	0xDC: {"CALL C,$%04X", 3, opU16},
	0xDE: {"SBC A,$%02X", 2, opU8},
	0xDF: {"RST $18", 1, opNone},

	0xE0: {"LDH ($%02X),A", 2, opU8},
	0xE1: {"POP HL", 1, opNone},
	0xE2: {"LD (C),A", 1, opNone},
	0xE5: {"PUSH HL", 1, opNone},
	0xE6: {"AND $%02X", 2, opU8},
	0xE7: {"RST $20", 1, opNone},
	0xE8: {"ADD SP,%+d", 2, opI8},
	0xE9: {"JP (HL)", 1, opNone},
	0xEA: {"LD ($%04X),A", 3, opU16},
	0xEE: {"XOR $%02X", 2, opU8},
	0xEF: {"RST $28", 1, opNone},

	0xF0: {"LDH A,($%02X)", 2, opU8},
	0xF1: {"POP AF", 1, opNone},
	0xF2: {"LD A,(C)", 1, opNone},
	0xF3: {"DI", 1, opNone},
	0xF5: {"PUSH AF", 1, opNone},
	0xF6: {"OR $%02X", 2, opU8},
	0xF7: {"RST $30", 1, opNone},
	0xF8: {"LD HL,SP%+d", 2, opI8},
	0xF9: {"LD SP,HL", 1, opNone},
	0xFA: {"LD A,($%04X)", 3, opU16},
	0xFB: {"EI", 1, opNone},
	0xFE: {"CP $%02X", 2, opU8},
	0xFF: {"RST $38", 1, opNone},
}

func init() {
	for op := 0x40; op <= 0x7F; op++ {
		if op == 0x76 {
			primary[op] = spec{"HALT", 1, opNone}
			continue
		}
		dst := regNames[(op>>3)&7]
		src := regNames[op&7]
		primary[op] = spec{"LD " + dst + "," + src, 1, opNone}
	}
	for op := 0x80; op <= 0xBF; op++ {
		primary[op] = spec{aluNames[(op>>3)&7] + regNames[op&7], 1, opNone}
	}
}

// cbMnemonic decodes the second byte of a CB-prefixed instruction. The whole
// page is regular: operation in the top bits, register in the bottom three.
func cbMnemonic(op byte) string {
	reg := regNames[op&7]
	switch {
	case op < 0x40:
		return rotNames[op>>3] + " " + reg
	case op < 0x80:
		return fmt.Sprintf("BIT %d,%s", (op>>3)&7, reg)
	case op < 0xC0:
		return fmt.Sprintf("RES %d,%s", (op>>3)&7, reg)
	default:
		return fmt.Sprintf("SET %d,%s", (op>>3)&7, reg)
	}
}

// DisassembleBytes decodes the instruction at data[offset] and returns its
// text together with the number of bytes it spans. The length is always at
// least 1 so callers can step through a buffer without stalling; opcode map
// holes and immediates cut off by the end of the slice come back as DB lines.
func DisassembleBytes(data []byte, offset int) (string, int) {
	if offset < 0 || offset >= len(data) {
		return "??", 1
	}

	op := data[offset]

	if op == 0xCB {
		if offset+1 >= len(data) {
			return "DB $CB", 1
		}
		return cbMnemonic(data[offset+1]), 2
	}

	ins := primary[op]
	if ins.length == 0 || offset+ins.length > len(data) {
		return fmt.Sprintf("DB $%02X", op), 1
	}

	switch ins.arg {
	case opU8:
		return fmt.Sprintf(ins.text, data[offset+1]), ins.length
	case opI8:
		return fmt.Sprintf(ins.text, int8(data[offset+1])), ins.length
	case opU16:
		word := bit.Combine(data[offset+2], data[offset+1])
		return fmt.Sprintf(ins.text, word), ins.length
	default:
		return ins.text, ins.length
	}
}
