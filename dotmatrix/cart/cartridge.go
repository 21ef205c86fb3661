// Package cart models the game cartridge: the ROM image, its header
// metadata and the memory bank controller (MBC) that interprets writes
// into the ROM address range as bank-select commands.
package cart

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// header field addresses
const (
	titleAddress          = 0x134
	cgbFlagAddress        = 0x143
	cartridgeTypeAddress  = 0x147
	romSizeAddress        = 0x148
	ramSizeAddress        = 0x149
	versionAddress        = 0x14C
	headerChecksumAddress = 0x14D

	titleLength = 16

	// headerEnd is the first address past the header; images shorter than
	// this cannot declare a cartridge at all.
	headerEnd = 0x150
)

// Load-time failures. A cartridge that fails any of these never runs.
var (
	ErrImageTooSmall         = errors.New("cartridge: image too small to contain a header")
	ErrHeaderChecksum        = errors.New("cartridge: header checksum mismatch")
	ErrUnsupportedController = errors.New("cartridge: unsupported controller type")
	ErrSaveSizeMismatch      = errors.New("cartridge: save data size does not match RAM size")
)

// Type is the controller type byte declared at 0x147.
type Type uint8

const (
	ROMOnly           Type = 0x00
	MBC1Type          Type = 0x01
	MBC1RAM           Type = 0x02
	MBC1RAMBattery    Type = 0x03
	MBC2Type          Type = 0x05
	MBC2Battery       Type = 0x06
	ROMRAM            Type = 0x08
	ROMRAMBattery     Type = 0x09
	MBC3TimerBattery  Type = 0x0F
	MBC3TimerRAMBatt  Type = 0x10
	MBC3Type          Type = 0x11
	MBC3RAM           Type = 0x12
	MBC3RAMBattery    Type = 0x13
	MBC5Type          Type = 0x19
	MBC5RAM           Type = 0x1A
	MBC5RAMBattery    Type = 0x1B
	MBC5Rumble        Type = 0x1C
	MBC5RumbleRAM     Type = 0x1D
	MBC5RumbleRAMBatt Type = 0x1E
)

func (t Type) String() string {
	switch t {
	case ROMOnly:
		return "ROM"
	case MBC1Type:
		return "MBC1"
	case MBC1RAM:
		return "MBC1+RAM"
	case MBC1RAMBattery:
		return "MBC1+RAM+BATTERY"
	case MBC2Type:
		return "MBC2"
	case MBC2Battery:
		return "MBC2+BATTERY"
	case ROMRAM:
		return "ROM+RAM"
	case ROMRAMBattery:
		return "ROM+RAM+BATTERY"
	case MBC3TimerBattery:
		return "MBC3+TIMER+BATTERY"
	case MBC3TimerRAMBatt:
		return "MBC3+TIMER+RAM+BATTERY"
	case MBC3Type:
		return "MBC3"
	case MBC3RAM:
		return "MBC3+RAM"
	case MBC3RAMBattery:
		return "MBC3+RAM+BATTERY"
	case MBC5Type:
		return "MBC5"
	case MBC5RAM:
		return "MBC5+RAM"
	case MBC5RAMBattery:
		return "MBC5+RAM+BATTERY"
	case MBC5Rumble:
		return "MBC5+RUMBLE"
	case MBC5RumbleRAM:
		return "MBC5+RUMBLE+RAM"
	case MBC5RumbleRAMBatt:
		return "MBC5+RUMBLE+RAM+BATTERY"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(t))
	}
}

func (t Type) hasBattery() bool {
	switch t {
	case MBC1RAMBattery, MBC2Battery, ROMRAMBattery, MBC3TimerBattery,
		MBC3TimerRAMBatt, MBC3RAMBattery, MBC5RAMBattery, MBC5RumbleRAMBatt:
		return true
	}
	return false
}

func (t Type) hasRTC() bool {
	return t == MBC3TimerBattery || t == MBC3TimerRAMBatt
}

// ramSizeBytes maps the RAM size code at 0x149 to a byte count.
func ramSizeBytes(code uint8) int {
	switch code {
	case 1:
		return 0x800
	case 2:
		return 0x2000
	case 3:
		return 0x8000
	case 4:
		return 0x20000
	case 5:
		return 0x10000
	default:
		return 0
	}
}

// Cartridge is a loaded ROM image together with its decoded header and the
// bank controller selected by the header's type byte.
type Cartridge struct {
	mbc        MBC
	title      string
	cartType   Type
	version    uint8
	romBanks   int
	ramSize    int
	cgb        bool
	hasBattery bool
}

// New decodes the image header, validates it and selects the matching bank
// controller. All failures here are load-time fatal: emulation never starts
// on a cartridge this function rejects.
func New(rom []byte) (*Cartridge, error) {
	if len(rom) < headerEnd {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageTooSmall, len(rom))
	}

	if sum := headerChecksum(rom); sum != rom[headerChecksumAddress] {
		return nil, fmt.Errorf("%w: computed 0x%02X, header declares 0x%02X",
			ErrHeaderChecksum, sum, rom[headerChecksumAddress])
	}

	cartType := Type(rom[cartridgeTypeAddress])
	ramSize := ramSizeBytes(rom[ramSizeAddress])

	c := &Cartridge{
		title:      cleanTitle(rom[titleAddress : titleAddress+titleLength]),
		cartType:   cartType,
		version:    rom[versionAddress],
		romBanks:   len(rom) / romBankSize,
		ramSize:    ramSize,
		cgb:        rom[cgbFlagAddress]&0x80 != 0,
		hasBattery: cartType.hasBattery(),
	}

	switch cartType {
	case ROMOnly, ROMRAM, ROMRAMBattery:
		c.mbc = NewNoMBC(rom, ramSize)
	case MBC1Type, MBC1RAM, MBC1RAMBattery:
		c.mbc = NewMBC1(rom, ramSize)
	case MBC2Type, MBC2Battery:
		c.mbc = NewMBC2(rom)
	case MBC3Type, MBC3RAM, MBC3RAMBattery, MBC3TimerBattery, MBC3TimerRAMBatt:
		c.mbc = NewMBC3(rom, ramSize, cartType.hasRTC(), nil)
	case MBC5Type, MBC5RAM, MBC5RAMBattery:
		c.mbc = NewMBC5(rom, false, ramSize)
	case MBC5Rumble, MBC5RumbleRAM, MBC5RumbleRAMBatt:
		c.mbc = NewMBC5(rom, true, ramSize)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedController, cartType)
	}

	return c, nil
}

// NewEmpty builds a blank 32KB ROM-only cartridge. Useful for wiring up a
// machine without an image, e.g. in tests or for test patterns.
func NewEmpty() *Cartridge {
	c, err := New(BlankImage())
	if err != nil {
		panic("cart: blank image rejected: " + err.Error())
	}
	return c
}

// BlankImage returns a minimal valid 32KB ROM-only image with a correct
// header checksum.
func BlankImage() []byte {
	rom := make([]byte, 2*romBankSize)
	rom[headerChecksumAddress] = headerChecksum(rom)
	return rom
}

// Read reads a byte through the bank controller. Addresses are the bus view:
// 0x0000-0x7FFF for ROM, 0xA000-0xBFFF for external RAM.
func (c *Cartridge) Read(address uint16) uint8 {
	return c.mbc.Read(address)
}

// Write routes a write through the bank controller. Writes into the ROM
// range operate the controller's bank latches; writes into the RAM range
// store data if RAM is present and enabled.
func (c *Cartridge) Write(address uint16, value uint8) {
	c.mbc.Write(address, value)
}

// RAM exposes the live external RAM contents for battery persistence.
// Mutating the returned slice mutates the cartridge RAM.
func (c *Cartridge) RAM() []uint8 {
	return c.mbc.RAM()
}

// LoadRAM restores previously persisted external RAM. The data must be a
// raw dump whose length matches the cartridge's RAM exactly.
func (c *Cartridge) LoadRAM(data []uint8) error {
	ram := c.mbc.RAM()
	if len(data) != len(ram) {
		return fmt.Errorf("%w: got %d bytes, cartridge has %d", ErrSaveSizeMismatch, len(data), len(ram))
	}
	copy(ram, data)
	return nil
}

// Title returns the game title declared in the header.
func (c *Cartridge) Title() string {
	return c.title
}

// Type returns the declared controller type.
func (c *Cartridge) Type() Type {
	return c.cartType
}

// CGB reports whether the header declares color-mode support.
func (c *Cartridge) CGB() bool {
	return c.cgb
}

// HasBattery reports whether the controller type carries battery-backed RAM,
// i.e. whether RAM contents are worth persisting.
func (c *Cartridge) HasBattery() bool {
	return c.hasBattery
}

// ROMBanks returns the number of 16KB banks in the image.
func (c *Cartridge) ROMBanks() int {
	return c.romBanks
}

// RAMSize returns the declared external RAM size in bytes.
func (c *Cartridge) RAMSize() int {
	return c.ramSize
}

// headerChecksum computes the checksum over the header bytes 0x134-0x14C
// using the hardware's subtract-and-decrement scheme.
func headerChecksum(rom []byte) uint8 {
	var sum uint8
	for i := titleAddress; i < headerChecksumAddress; i++ {
		sum = sum - rom[i] - 1
	}
	return sum
}

// cleanTitle turns the raw header title bytes into a printable string:
// NULs become spaces, non-printable bytes become '?', ends are trimmed.
func cleanTitle(raw []byte) string {
	runes := make([]rune, 0, len(raw))
	for _, b := range raw {
		r := rune(b)
		if r == 0 {
			r = ' '
		} else if !unicode.IsPrint(r) {
			r = '?'
		}
		runes = append(runes, r)
	}

	title := strings.TrimSpace(string(runes))
	if title == "" {
		return "(Untitled)"
	}
	return title
}
