package memory

import (
	"github.com/dmgcore/go-dotmatrix/dotmatrix/addr"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/bit"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/interrupt"
)

// JoypadKey identifies one of the eight pad inputs.
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// Joypad models the P1 register: a selector (bits 4-5, 0 = selected) that
// maps one of two 4-line button groups onto the low bits. Lines read 0 while
// held. A press requests the joypad interrupt, which also serves as the wake
// source for a stopped CPU.
type Joypad struct {
	irq     *interrupt.Controller
	buttons uint8 // A/B/Select/Start on bits 0-3
	dpad    uint8 // Right/Left/Up/Down on bits 0-3
	sel     uint8 // selection bits 4-5 as last written
}

func NewJoypad(irq *interrupt.Controller) *Joypad {
	return &Joypad{
		irq:     irq,
		buttons: 0x0F,
		dpad:    0x0F,
		sel:     0x30,
	}
}

// Read composes P1 from the selection bits and the chosen group's lines.
// Bits 6-7 are unwired and read as 1. With both groups selected the lines
// combine; with neither selected the low bits float high.
func (j *Joypad) Read() uint8 {
	result := 0xC0 | j.sel

	selectDpad := !bit.IsSet(4, j.sel)
	selectButtons := !bit.IsSet(5, j.sel)

	switch {
	case selectButtons && !selectDpad:
		result |= j.buttons
	case selectDpad && !selectButtons:
		result |= j.dpad
	case selectButtons && selectDpad:
		result |= j.buttons & j.dpad
	default:
		result |= 0x0F
	}

	return result
}

// Write stores the group selection; only bits 4-5 are writable.
func (j *Joypad) Write(value uint8) {
	j.sel = value & 0x30
}

// Press drives a key line low and requests the joypad interrupt on the
// high-to-low transition. Holding a key does not retrigger.
func (j *Joypad) Press(key JoypadKey) {
	group, mask := j.line(key)
	if group == nil || *group&mask == 0 {
		return
	}
	*group &^= mask
	j.irq.Request(addr.JoypadInterrupt)
}

// Release lets a key line float back high.
func (j *Joypad) Release(key JoypadKey) {
	group, mask := j.line(key)
	if group != nil {
		*group |= mask
	}
}

func (j *Joypad) line(key JoypadKey) (group *uint8, mask uint8) {
	switch key {
	case JoypadRight:
		return &j.dpad, 0x01
	case JoypadLeft:
		return &j.dpad, 0x02
	case JoypadUp:
		return &j.dpad, 0x04
	case JoypadDown:
		return &j.dpad, 0x08
	case JoypadA:
		return &j.buttons, 0x01
	case JoypadB:
		return &j.buttons, 0x02
	case JoypadSelect:
		return &j.buttons, 0x04
	case JoypadStart:
		return &j.buttons, 0x08
	}
	return nil, 0
}
