// Package interrupt models the interrupt controller: the enable mask (IE),
// the pending flags (IF) and the master enable (IME).
//
// Peripherals call Request when their interrupt condition fires; the CPU
// queries Pending at each step boundary and acknowledges the source it
// services. The masks are bus-mapped at 0xFFFF and 0xFF0F, so the CPU also
// reaches this state through ordinary memory access.
package interrupt

import "github.com/dmgcore/go-dotmatrix/dotmatrix/addr"

// sourceMask covers the five interrupt sources in IE/IF.
const sourceMask = 0x1F

// Controller holds interrupt state shared between the CPU and peripherals.
type Controller struct {
	enable byte
	flags  byte
	master bool
}

func NewController() *Controller {
	return &Controller{}
}

// Request marks an interrupt source as pending. Peripherals may call this
// at any point during their advance.
func (c *Controller) Request(source addr.Interrupt) {
	c.flags |= byte(source)
}

// Requested reports whether the source's pending flag is set, enabled or not.
func (c *Controller) Requested(source addr.Interrupt) bool {
	return c.flags&byte(source) != 0
}

// Acknowledge clears the pending flag for a serviced source.
func (c *Controller) Acknowledge(source addr.Interrupt) {
	c.flags &^= byte(source)
}

// Pending returns the set of sources that are both enabled and flagged.
// A non-zero result wakes a halted CPU; combined with the master enable it
// triggers dispatch.
func (c *Controller) Pending() byte {
	return c.enable & c.flags & sourceMask
}

// Master reports the IME flag.
func (c *Controller) Master() bool {
	return c.master
}

// SetMaster mutates the IME flag. Only the CPU does this: EI/DI/RETI and
// interrupt dispatch.
func (c *Controller) SetMaster(enabled bool) {
	c.master = enabled
}

// ReadEnable returns the IE register value.
func (c *Controller) ReadEnable() byte {
	return c.enable
}

// WriteEnable sets the IE register. All eight bits are stored; only the low
// five take part in dispatch.
func (c *Controller) WriteEnable(value byte) {
	c.enable = value
}

// ReadFlags returns the IF register value. The unused upper three bits read
// as 1 on hardware.
func (c *Controller) ReadFlags() byte {
	return c.flags | 0xE0
}

// WriteFlags sets the IF register. Software may clear or raise pending bits
// directly.
func (c *Controller) WriteFlags(value byte) {
	c.flags = value & sourceMask
}
