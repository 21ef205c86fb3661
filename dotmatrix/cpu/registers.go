package cpu

import (
	"github.com/dmgcore/go-dotmatrix/dotmatrix/bit"
)

// Flag is one of the 4 possible flags used in the flag register (low part of AF)
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &= uint8(flag ^ 0xFF)
}

func (c CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

// flagToBit will return 1 if the passed flag is set, 0 otherwise
func (c CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}

	return 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if !condition {
		c.resetFlag(flag)
		return
	}

	c.setFlag(flag)
}

func (c *CPU) setBC(value uint16) {
	c.b = bit.High(value)
	c.c = bit.Low(value)
}

func (c CPU) getBC() uint16 {
	return bit.Combine(c.b, c.c)
}

func (c *CPU) setDE(value uint16) {
	c.d = bit.High(value)
	c.e = bit.Low(value)
}

func (c CPU) getDE() uint16 {
	return bit.Combine(c.d, c.e)
}

func (c *CPU) setHL(value uint16) {
	c.h = bit.High(value)
	c.l = bit.Low(value)
}

func (c CPU) getHL() uint16 {
	return bit.Combine(c.h, c.l)
}

func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	// F register lower 4 bits must be 0
	c.f = bit.Low(value) & 0xF0
}

func (c CPU) getAF() uint16 {
	return bit.Combine(c.a, c.f)
}

// Debug getter methods for register display
func (c *CPU) GetA() uint8       { return c.a }
func (c *CPU) GetF() uint8       { return c.f }
func (c *CPU) GetB() uint8       { return c.b }
func (c *CPU) GetC() uint8       { return c.c }
func (c *CPU) GetD() uint8       { return c.d }
func (c *CPU) GetE() uint8       { return c.e }
func (c *CPU) GetH() uint8       { return c.h }
func (c *CPU) GetL() uint8       { return c.l }
func (c *CPU) GetSP() uint16     { return c.sp }
func (c *CPU) GetPC() uint16     { return c.pc }
func (c *CPU) GetCycles() uint64 { return c.cycles }

// Interrupt state getters
func (c *CPU) GetIME() bool   { return c.irq.Master() }
func (c *CPU) IsHalted() bool { return c.halted }
func (c *CPU) GetIE() uint8   { return c.irq.ReadEnable() }
func (c *CPU) GetIF() uint8   { return c.irq.ReadFlags() }

// GetPendingInterrupts returns which interrupts are both enabled and requested
func (c *CPU) GetPendingInterrupts() uint8 {
	return c.irq.Pending()
}

// GetFlagString returns a human-readable representation of the flag register
func (c *CPU) GetFlagString() string {
	flags := ""
	if c.f&uint8(zeroFlag) != 0 {
		flags += "Z"
	} else {
		flags += "-"
	}
	if c.f&uint8(subFlag) != 0 {
		flags += "N"
	} else {
		flags += "-"
	}
	if c.f&uint8(halfCarryFlag) != 0 {
		flags += "H"
	} else {
		flags += "-"
	}
	if c.f&uint8(carryFlag) != 0 {
		flags += "C"
	} else {
		flags += "-"
	}
	return flags
}
