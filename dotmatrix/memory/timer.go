package memory

import (
	"github.com/dmgcore/go-dotmatrix/dotmatrix/addr"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/bit"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/interrupt"
)

// tacLookup maps TAC input clock select (bits 1-0) to the bit position
// of the 16-bit internal divider used as the timer's clock source. TIMA
// increments on falling edges of this selected bit while the timer is
// enabled (TAC bit 2 = 1).
//
// Mapping per Pan Docs (DMG):
//
//	00 -> bit 9  (4096 Hz)
//	01 -> bit 3  (262144 Hz)
//	10 -> bit 5  (65536 Hz)
//	11 -> bit 7  (16384 Hz)
var tacLookup = [4]uint8{9, 3, 5, 7}

// Timer implements the DIV/TIMA/TMA/TAC register block. The divider runs
// unconditionally (it is the machine's time base); the programmable counter
// clocks off an AND gate between the enable bit and the selected divider
// bit, so DIV resets and TAC rewrites can themselves produce an increment.
type Timer struct {
	irq *interrupt.Controller

	systemCounter uint16 // internal 16-bit counter, DIV is the upper 8 bits
	lastSignal    bool   // previous enable AND tap bit, for edge detection
	overflowDelay int    // cycles left until the delayed TMA reload
	pendingIRQ    bool   // interrupt fires one cycle after the reload

	tima byte
	tma  byte
	tac  byte
}

// NewTimer wires a timer to the interrupt controller it raises requests on.
func NewTimer(irq *interrupt.Controller) *Timer {
	return &Timer{irq: irq}
}

// SetSeed initializes the internal divider counter, e.g. to the post-boot
// value when no bootrom runs.
func (t *Timer) SetSeed(seed uint16) {
	t.systemCounter = seed
	t.lastSignal = false
	t.overflowDelay = 0
	t.pendingIRQ = false
}

// Advance steps the timer by the given number of machine cycles.
func (t *Timer) Advance(cycles int) {
	for range cycles {
		if t.pendingIRQ {
			t.irq.Request(addr.TimerInterrupt)
			t.pendingIRQ = false
		}

		if t.overflowDelay > 0 {
			// Overflow state: TIMA reads 0 until TMA is loaded 4 cycles later.
			t.systemCounter++
			t.overflowDelay--
			if t.overflowDelay == 0 {
				t.tima = t.tma
				t.pendingIRQ = true
			}
			continue
		}

		t.systemCounter++
		t.syncEdge()
	}
}

// syncEdge recomputes the gated clock signal and clocks TIMA on a falling
// edge. Called after anything that can change the signal: counter steps,
// DIV resets, TAC writes.
func (t *Timer) syncEdge() {
	signal := bit.IsSet(2, t.tac) && bit.IsSet16(tacLookup[t.tac&0x03], t.systemCounter)
	if t.lastSignal && !signal {
		t.incrementTIMA()
	}
	t.lastSignal = signal
}

func (t *Timer) incrementTIMA() {
	if t.tima == 0xFF {
		t.overflowDelay = 4
	}
	t.tima++
}

func (t *Timer) Read(address uint16) byte {
	switch address {
	case addr.DIV:
		return byte(t.systemCounter >> 8)
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return t.tac | 0xF8
	default:
		return 0xFF
	}
}

func (t *Timer) Write(address uint16, value byte) {
	switch address {
	case addr.DIV:
		// Any write zeroes the whole internal counter, which can itself be
		// a falling edge on the selected bit.
		t.systemCounter = 0
		t.syncEdge()
	case addr.TIMA:
		t.tima = value
		// Writing during the overflow window aborts the pending reload.
		t.overflowDelay = 0
	case addr.TMA:
		t.tma = value
	case addr.TAC:
		t.tac = value & 0x07
		t.syncEdge()
	}
}
