package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testImage builds a minimal valid image with the given header fields and a
// recomputed checksum.
func testImage(banks int, cartType Type, ramSizeCode uint8, title string) []byte {
	rom := make([]byte, banks*romBankSize)
	copy(rom[titleAddress:titleAddress+titleLength], title)
	rom[cartridgeTypeAddress] = uint8(cartType)
	rom[ramSizeAddress] = ramSizeCode
	rom[headerChecksumAddress] = headerChecksum(rom)
	return rom
}

func TestNewParsesHeader(t *testing.T) {
	rom := testImage(2, MBC1RAMBattery, 3, "ZELDA")

	c, err := New(rom)
	require.NoError(t, err)

	assert.Equal(t, "ZELDA", c.Title())
	assert.Equal(t, MBC1RAMBattery, c.Type())
	assert.Equal(t, "MBC1+RAM+BATTERY", c.Type().String())
	assert.Equal(t, 2, c.ROMBanks())
	assert.Equal(t, 0x8000, c.RAMSize())
	assert.True(t, c.HasBattery())
	assert.False(t, c.CGB())
}

func TestNewDetectsColorFlag(t *testing.T) {
	rom := testImage(2, ROMOnly, 0, "COLOR")
	rom[cgbFlagAddress] = 0x80
	rom[headerChecksumAddress] = headerChecksum(rom)

	c, err := New(rom)
	require.NoError(t, err)
	assert.True(t, c.CGB())

	rom[cgbFlagAddress] = 0xC0 // color-only cartridges set both bits
	rom[headerChecksumAddress] = headerChecksum(rom)
	c, err = New(rom)
	require.NoError(t, err)
	assert.True(t, c.CGB())
}

func TestNewRejectsTruncatedImage(t *testing.T) {
	_, err := New(make([]byte, 0x100))
	assert.ErrorIs(t, err, ErrImageTooSmall)
}

func TestNewRejectsBadChecksum(t *testing.T) {
	rom := testImage(2, ROMOnly, 0, "BROKEN")
	rom[headerChecksumAddress] ^= 0xFF

	_, err := New(rom)
	assert.ErrorIs(t, err, ErrHeaderChecksum)
}

func TestNewRejectsUnsupportedController(t *testing.T) {
	rom := testImage(2, Type(0xFC), 0, "CAMERA") // Pocket Camera

	_, err := New(rom)
	assert.ErrorIs(t, err, ErrUnsupportedController)
	assert.Contains(t, err.Error(), "0xFC")
}

func TestControllerSelection(t *testing.T) {
	tests := []struct {
		name     string
		cartType Type
		want     MBC
	}{
		{"ROM only", ROMOnly, &NoMBC{}},
		{"ROM+RAM", ROMRAM, &NoMBC{}},
		{"MBC1", MBC1Type, &MBC1{}},
		{"MBC2", MBC2Battery, &MBC2{}},
		{"MBC3", MBC3RAMBattery, &MBC3{}},
		{"MBC3 with timer", MBC3TimerBattery, &MBC3{}},
		{"MBC5", MBC5Type, &MBC5{}},
		{"MBC5 rumble", MBC5RumbleRAMBatt, &MBC5{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(testImage(2, tt.cartType, 2, "T"))
			require.NoError(t, err)
			assert.IsType(t, tt.want, c.mbc)
		})
	}
}

func TestSaveRAMRoundTrip(t *testing.T) {
	c, err := New(testImage(2, MBC1RAMBattery, 2, "SAVE"))
	require.NoError(t, err)

	// Enable RAM and store something through the bus interface.
	c.Write(0x0000, 0x0A)
	c.Write(0xA000, 0x42)
	c.Write(0xA010, 0x24)

	dump := make([]byte, len(c.RAM()))
	copy(dump, c.RAM())
	assert.Len(t, dump, 0x2000)
	assert.Equal(t, uint8(0x42), dump[0])

	// Restore into a fresh cartridge.
	fresh, err := New(testImage(2, MBC1RAMBattery, 2, "SAVE"))
	require.NoError(t, err)
	require.NoError(t, fresh.LoadRAM(dump))

	fresh.Write(0x0000, 0x0A)
	assert.Equal(t, uint8(0x42), fresh.Read(0xA000))
	assert.Equal(t, uint8(0x24), fresh.Read(0xA010))
}

func TestLoadRAMRejectsWrongSize(t *testing.T) {
	c, err := New(testImage(2, MBC1RAMBattery, 2, "SAVE"))
	require.NoError(t, err)

	err = c.LoadRAM(make([]byte, 123))
	assert.ErrorIs(t, err, ErrSaveSizeMismatch)
}

func TestNewEmpty(t *testing.T) {
	c := NewEmpty()
	assert.Equal(t, ROMOnly, c.Type())
	assert.Equal(t, "(Untitled)", c.Title())
	assert.Equal(t, uint8(0x00), c.Read(0x0000))
}

func TestTitleCleaning(t *testing.T) {
	rom := testImage(2, ROMOnly, 0, "")
	copy(rom[titleAddress:], []byte{'P', 'O', 'K', 'E', 0x00, 0x01, 'X'})
	rom[headerChecksumAddress] = headerChecksum(rom)

	c, err := New(rom)
	require.NoError(t, err)
	assert.Equal(t, "POKE ?X", c.Title())
}
