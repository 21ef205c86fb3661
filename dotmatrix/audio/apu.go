// Package audio models the audio register window at 0xFF10-0xFF3F. Sound
// synthesis is out of scope for this machine: the unit stores register
// writes, applies the documented read masks and keeps the NR52 power
// semantics, which is enough for software that polls audio state to keep
// running.
package audio

import (
	"github.com/dmgcore/go-dotmatrix/dotmatrix/addr"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/bit"
)

const registerCount = 0x30

// readMasks is OR-ed into every register read; set bits are unwired or
// write-only on hardware and read back as 1. Wave RAM (0x20-0x2F) reads
// back as written.
var readMasks = [registerCount]byte{
	0x00: 0x80, // NR10
	0x01: 0x3F, // NR11
	0x02: 0x00, // NR12
	0x03: 0xFF, // NR13
	0x04: 0xBF, // NR14
	0x05: 0xFF,
	0x06: 0x3F, // NR21
	0x07: 0x00, // NR22
	0x08: 0xFF, // NR23
	0x09: 0xBF, // NR24
	0x0A: 0x7F, // NR30
	0x0B: 0xFF, // NR31
	0x0C: 0x9F, // NR32
	0x0D: 0xFF, // NR33
	0x0E: 0xBF, // NR34
	0x0F: 0xFF,
	0x10: 0xFF, // NR41
	0x11: 0x00, // NR42
	0x12: 0x00, // NR43
	0x13: 0xBF, // NR44
	0x14: 0x00, // NR50
	0x15: 0x00, // NR51
	0x16: 0x70, // NR52
	0x17: 0xFF,
	0x18: 0xFF,
	0x19: 0xFF,
	0x1A: 0xFF,
	0x1B: 0xFF,
	0x1C: 0xFF,
	0x1D: 0xFF,
	0x1E: 0xFF,
	0x1F: 0xFF,
}

// APU holds the audio register file.
type APU struct {
	enabled   bool
	registers [registerCount]byte

	// Debug mute state, per channel. Not a hardware register.
	muted [4]bool
}

// New creates an APU seeded with the post-boot register values.
func New() *APU {
	a := &APU{enabled: true}
	a.seedRegisters()
	return a
}

// seedRegisters applies the documented power-up values.
func (a *APU) seedRegisters() {
	a.registers[addr.NR10-addr.AudioStart] = 0x80
	a.registers[addr.NR11-addr.AudioStart] = 0xBF
	a.registers[addr.NR12-addr.AudioStart] = 0xF3
	a.registers[addr.NR14-addr.AudioStart] = 0xBF
	a.registers[addr.NR21-addr.AudioStart] = 0x3F
	a.registers[addr.NR24-addr.AudioStart] = 0xBF
	a.registers[addr.NR30-addr.AudioStart] = 0x7F
	a.registers[addr.NR31-addr.AudioStart] = 0xFF
	a.registers[addr.NR32-addr.AudioStart] = 0x9F
	a.registers[addr.NR34-addr.AudioStart] = 0xBF
	a.registers[addr.NR41-addr.AudioStart] = 0xFF
	a.registers[addr.NR44-addr.AudioStart] = 0xBF
	a.registers[addr.NR50-addr.AudioStart] = 0x77
	a.registers[addr.NR51-addr.AudioStart] = 0xF3
	a.registers[addr.NR52-addr.AudioStart] = 0xF1
}

// ReadRegister returns a register with its read mask applied. Addresses
// outside the audio window read 0xFF.
func (a *APU) ReadRegister(address uint16) uint8 {
	if address < addr.AudioStart || address > addr.AudioEnd {
		return 0xFF
	}
	index := address - addr.AudioStart
	return a.registers[index] | readMasks[index]
}

// PeekRegister returns the stored register value without the read mask.
// Debug views want the programmed values; the masks hide the write-only
// frequency registers from bus reads.
func (a *APU) PeekRegister(address uint16) uint8 {
	if address < addr.AudioStart || address > addr.AudioEnd {
		return 0xFF
	}
	return a.registers[address-addr.AudioStart]
}

// WriteRegister stores a register write. NR52 bit 7 powers the unit; turning
// it off clears the control registers and blocks further writes, except to
// wave RAM, until powered back on.
func (a *APU) WriteRegister(address uint16, value uint8) {
	if address < addr.AudioStart || address > addr.AudioEnd {
		return
	}
	if address == addr.NR52 {
		wasEnabled := a.enabled
		a.enabled = bit.IsSet(7, value)
		if wasEnabled && !a.enabled {
			a.clearRegisters()
		}
		a.registers[addr.NR52-addr.AudioStart] = value & 0x80
		return
	}
	if !a.enabled && address < addr.WaveRAMStart {
		return
	}
	a.registers[address-addr.AudioStart] = value
}

// clearRegisters zeroes the control registers on power-off. Wave RAM is
// preserved.
func (a *APU) clearRegisters() {
	for i := range int(addr.WaveRAMStart - addr.AudioStart) {
		a.registers[i] = 0
	}
}
