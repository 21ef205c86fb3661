package video

import (
	"github.com/dmgcore/go-dotmatrix/dotmatrix/addr"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/bit"
)

const (
	oamSpriteCount = 40
	oamEntrySize   = 4
	scanlineLimit  = 10 // hardware cap on sprites per scanline
)

// Sprite is one object from attribute memory, decoded for rendering.
// Coordinates are screen positions: the raw OAM values minus the hardware
// offsets (16 for Y, 8 for X), so partially off-screen sprites go negative.
type Sprite struct {
	Y         int
	X         int
	TileIndex uint8
	Flags     uint8
	OAMIndex  int
	Height    int // 8 or 16 pixels, from the control register

	PaletteOBP1 bool // false = OBP0, true = OBP1 (non-color mode)
	FlipX       bool
	FlipY       bool
	BehindBG    bool // background colors 1-3 hide this sprite

	ColorPalette uint8 // palette memory slot 0-7 (color mode)
	VRAMBank     int   // pattern data bank (color mode)

	// PixelMask marks the pixels this sprite owns after priority
	// resolution. Bit 7 is the leftmost pixel.
	PixelMask uint8
}

func (s *Sprite) parseFlags() {
	s.PaletteOBP1 = bit.IsSet(4, s.Flags)
	s.FlipX = bit.IsSet(5, s.Flags)
	s.FlipY = bit.IsSet(6, s.Flags)
	s.BehindBG = bit.IsSet(7, s.Flags)
	s.ColorPalette = s.Flags & 0x07
	s.VRAMBank = int(s.Flags>>3) & 0x01
}

// HasPriorityForPixel reports whether this sprite owns the pixel at the
// given X position (0-7) within its own 8-pixel span.
func (s *Sprite) HasPriorityForPixel(pixelX int) bool {
	if pixelX < 0 || pixelX > 7 {
		return false
	}
	return s.PixelMask&(1<<(7-pixelX)) != 0
}

// OAMBus is the interface object attribute memory is read through.
type OAMBus interface {
	Read(address uint16) byte
}

// OAM selects and prioritizes sprites for scanline rendering.
type OAM struct {
	bus            OAMBus
	priorityBuffer SpritePriorityBuffer
	spriteBuffer   [scanlineLimit]Sprite
}

// NewOAM wires sprite selection to attribute memory. In color mode,
// sprite-to-sprite priority follows OAM order instead of X position.
func NewOAM(bus OAMBus, colorMode bool) *OAM {
	return &OAM{
		bus: bus,
		priorityBuffer: SpritePriorityBuffer{
			indexOnly: colorMode,
		},
	}
}

// GetSpritesForScanline returns the sprites that overlap the given scanline
// with their pixel ownership resolved, at most ten of them.
//
// Selection walks attribute memory in order and keeps the first ten entries
// whose Y range covers the line. The X position plays no part in selection,
// so sprites positioned off-screen horizontally still use up slots.
func (o *OAM) GetSpritesForScanline(scanline int) []Sprite {
	sprites := o.spriteBuffer[:0]
	o.priorityBuffer.Clear()

	height := o.spriteHeight()

	for i := range oamSpriteCount {
		base := addr.OAMStart + uint16(i*oamEntrySize)

		spriteY := int(o.bus.Read(base)) - 16
		if scanline < spriteY || scanline >= spriteY+height {
			continue
		}

		sprite := Sprite{
			Y:         spriteY,
			X:         int(o.bus.Read(base+1)) - 8,
			TileIndex: o.bus.Read(base + 2),
			Flags:     o.bus.Read(base + 3),
			OAMIndex:  i,
			Height:    height,
		}
		sprite.parseFlags()

		sprites = append(sprites, sprite)

		for pixelX := range 8 {
			o.priorityBuffer.TryClaimPixel(sprite.X+pixelX, sprite.OAMIndex, sprite.X)
		}

		if len(sprites) >= scanlineLimit {
			break
		}
	}

	for i := range sprites {
		var mask uint8
		for pixelX := range 8 {
			if o.priorityBuffer.GetOwner(sprites[i].X+pixelX) == sprites[i].OAMIndex {
				mask |= 1 << (7 - pixelX)
			}
		}
		sprites[i].PixelMask = mask
	}

	return sprites
}

func (o *OAM) spriteHeight() int {
	if bit.IsSet(2, o.bus.Read(addr.LCDC)) {
		return 16
	}
	return 8
}

func (o *OAM) readSprite(index int) Sprite {
	base := addr.OAMStart + uint16(index*oamEntrySize)

	sprite := Sprite{
		Y:         int(o.bus.Read(base)) - 16,
		X:         int(o.bus.Read(base+1)) - 8,
		TileIndex: o.bus.Read(base + 2),
		Flags:     o.bus.Read(base + 3),
		OAMIndex:  index,
		Height:    o.spriteHeight(),
	}
	sprite.parseFlags()

	return sprite
}

// GetSprite returns the sprite at the given index (0-39), or nil when out
// of range.
func (o *OAM) GetSprite(index int) *Sprite {
	if index < 0 || index >= oamSpriteCount {
		return nil
	}
	sprite := o.readSprite(index)
	return &sprite
}

// GetAllSprites returns all 40 sprites. Useful for debug tools.
func (o *OAM) GetAllSprites() []Sprite {
	result := make([]Sprite, oamSpriteCount)
	for i := range oamSpriteCount {
		result[i] = o.readSprite(i)
	}
	return result
}
