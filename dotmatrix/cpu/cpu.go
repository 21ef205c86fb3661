// Package cpu implements the Sharp SM83 core found in the DMG and CGB.
//
// The core advances one instruction per Step call and reports how many
// machine cycles it consumed, so the scheduler can run the other units
// for the same span. Interrupt dispatch, the halt and stop states and
// the delayed effect of EI are all resolved at step boundaries.
package cpu

import (
	"fmt"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/addr"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/bit"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/interrupt"
)

// Bus provides the interface for component communication. The speed
// switch pair lets STOP drive the double speed latch on color
// hardware; on the DMG the switch is never armed.
type Bus interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	SpeedSwitchArmed() bool
	ToggleSpeed()
}

const (
	baseInterruptAddress uint16 = 0x40

	// interruptDispatchCycles is the cost of jumping to a handler.
	interruptDispatchCycles = 20

	// idleCycles is the step granularity while halted or stopped.
	idleCycles = 4
)

// IllegalOpcodeError is returned by Step when execution reaches one of
// the eleven opcodes the hardware leaves undefined. A real unit locks
// up on these, so the machine surfaces the fault instead of guessing.
type IllegalOpcodeError struct {
	Opcode byte
	Addr   uint16
}

func (e IllegalOpcodeError) Error() string {
	return fmt.Sprintf("illegal opcode 0x%02X at 0x%04X", e.Opcode, e.Addr)
}

// CPU holds the SM83 register file and execution state.
type CPU struct {
	a  uint8
	f  uint8
	b  uint8
	c  uint8
	d  uint8
	e  uint8
	h  uint8
	l  uint8
	sp uint16
	pc uint16

	eiPending     bool // EI delay: interrupts enable after next instruction
	currentOpcode uint16
	stopped       bool
	cycles        uint64
	halted        bool

	// haltBug indicates the next instruction should execute with the
	// HALT bug semantics (skip first opcode-byte increment; operands still
	// advance PC). Set by HALT, cleared after the affected instruction.
	haltBug bool

	bus Bus
	irq *interrupt.Controller
}

// New returns an initialized CPU instance with the register values the
// boot rom leaves behind. Color hardware identifies itself to the
// program through the accumulator.
func New(bus Bus, irq *interrupt.Controller, color bool) *CPU {
	cpu := &CPU{
		bus: bus,
		irq: irq,
	}

	cpu.setAF(0x01B0)
	cpu.setBC(0x0013)
	cpu.setDE(0x00D8)
	cpu.setHL(0x014D)
	cpu.sp = 0xFFFE
	cpu.pc = 0x0100

	if color {
		cpu.a = 0x11
	}

	return cpu
}

// ResetForBoot clears the register file so execution starts at 0x0000.
// Used when a boot rom is mapped in instead of the post-boot state.
func (c *CPU) ResetForBoot() {
	c.setAF(0)
	c.setBC(0)
	c.setDE(0)
	c.setHL(0)
	c.sp = 0
	c.pc = 0
}

// Step advances the CPU by one instruction, interrupt dispatch or idle
// slice, and returns the amount of machine cycles it has taken.
func (c *CPU) Step() (int, error) {
	if c.dispatchInterrupt() {
		return interruptDispatchCycles, nil
	}

	if c.halted {
		if c.irq.Pending() == 0 {
			// Still halted, consume cycles.
			c.cycles += idleCycles
			return idleCycles, nil
		}
		// A pending request wakes the core even with the master enable
		// off; execution resumes after the HALT.
		c.halted = false
	}

	if c.stopped {
		if !c.irq.Requested(addr.JoypadInterrupt) {
			c.cycles += idleCycles
			return idleCycles, nil
		}
		c.stopped = false
	}

	instruction := Decode(c)
	if instruction == nil {
		return 0, IllegalOpcodeError{Opcode: c.bus.Read(c.pc), Addr: c.pc}
	}

	// Previous instruction triggered the halt bug, we have to skip the
	// first PC increment; operand reads still advance PC.
	if c.haltBug {
		c.haltBug = false
	} else {
		c.pc++
	}
	if bit.High(c.currentOpcode) == 0xCB {
		c.pc++
	}

	enableIME := c.eiPending
	cycles := instruction(c)
	c.cycles += uint64(cycles)

	// Handle EI delay: the master enable turns on after the instruction
	// that follows EI. DI in that slot clears eiPending and wins.
	if enableIME && c.eiPending {
		c.eiPending = false
		c.irq.SetMaster(true)
	}

	return cycles, nil
}

// dispatchInterrupt services the highest priority interrupt that is
// both enabled and requested, if the master enable allows it. Returns
// true if a handler was entered.
func (c *CPU) dispatchInterrupt() bool {
	if !c.irq.Master() {
		return false
	}

	pending := c.irq.Pending()
	if pending == 0 {
		return false
	}

	// Bit 0 has the highest priority; the first set bit wins.
	for i := uint8(0); i < 5; i++ {
		if !bit.IsSet(i, pending) {
			continue
		}

		// Handlers sit 8 bytes apart, 0x40 through 0x60.
		address := uint16(i)*8 + baseInterruptAddress

		c.irq.Acknowledge(addr.Interrupt(1 << i))

		// dispatch drops the master enable and wakes a halted core;
		// a pending EI delay can no longer land.
		c.irq.SetMaster(false)
		c.eiPending = false
		c.halted = false

		c.pushStack(c.pc)
		c.pc = address
		c.cycles += interruptDispatchCycles
		return true
	}

	return false
}

// peekImmediate returns the operand byte at PC without consuming it.
func (c CPU) peekImmediate() uint8 {
	return c.bus.Read(c.pc)
}

// peekImmediateWord returns the 16-bit operand at PC, stored low byte first.
func (c CPU) peekImmediateWord() uint16 {
	low := c.bus.Read(c.pc)
	high := c.bus.Read(c.pc + 1)
	return bit.Combine(high, low)
}

func (c CPU) peekSignedImmediate() int8 {
	return int8(c.peekImmediate())
}

// The read variants consume the operand, leaving PC past it.

func (c *CPU) readImmediate() uint8 {
	n := c.peekImmediate()
	c.pc++
	return n
}

func (c *CPU) readImmediateWord() uint16 {
	nn := c.peekImmediateWord()
	c.pc += 2
	return nn
}

func (c *CPU) readSignedImmediate() int8 {
	n := c.peekSignedImmediate()
	c.pc++
	return n
}
