package interrupt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/addr"
)

func TestRequestSetsFlag(t *testing.T) {
	c := NewController()

	c.Request(addr.TimerInterrupt)

	assert.True(t, c.Requested(addr.TimerInterrupt))
	assert.False(t, c.Requested(addr.VBlankInterrupt))
	assert.Equal(t, byte(0xE4), c.ReadFlags(), "upper three bits read as 1")
}

func TestPendingRequiresEnableAndFlag(t *testing.T) {
	c := NewController()

	c.Request(addr.SerialInterrupt)
	assert.Zero(t, c.Pending(), "flag without enable is not pending")

	c.WriteEnable(byte(addr.SerialInterrupt))
	assert.Equal(t, byte(addr.SerialInterrupt), c.Pending())

	c.Acknowledge(addr.SerialInterrupt)
	assert.Zero(t, c.Pending())
}

func TestPendingIgnoresMaster(t *testing.T) {
	c := NewController()
	c.WriteEnable(0x1F)
	c.Request(addr.JoypadInterrupt)

	c.SetMaster(false)
	assert.Equal(t, byte(addr.JoypadInterrupt), c.Pending(), "halt wake does not need IME")
}

func TestFlagWritesMaskUnusedBits(t *testing.T) {
	c := NewController()

	c.WriteFlags(0xFF)
	assert.Equal(t, byte(0xFF), c.ReadFlags())
	assert.Equal(t, byte(0x1F), c.ReadFlags()&0x1F)

	c.WriteFlags(0x00)
	assert.Equal(t, byte(0xE0), c.ReadFlags())
}

func TestEnableStoresAllBits(t *testing.T) {
	c := NewController()

	c.WriteEnable(0xFF)
	assert.Equal(t, byte(0xFF), c.ReadEnable())

	c.Request(addr.VBlankInterrupt)
	c.Request(addr.LCDSTATInterrupt)
	assert.Equal(t, byte(0x03), c.Pending())
}

func TestMasterToggle(t *testing.T) {
	c := NewController()
	assert.False(t, c.Master())

	c.SetMaster(true)
	assert.True(t, c.Master())

	c.SetMaster(false)
	assert.False(t, c.Master())
}
