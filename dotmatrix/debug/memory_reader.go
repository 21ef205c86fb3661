package debug

import (
	"github.com/dmgcore/go-dotmatrix/dotmatrix/bit"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/video"
)

// MemoryReader is the read-only view of the bus the extractors work against.
// Keeping it to a single method means the full memory unit, the picture unit
// or a plain test fake all qualify.
type MemoryReader interface {
	Read(address uint16) byte
}

// ExtractOAMDataFromReader walks all 40 sprite table entries and decodes each
// into screen coordinates, flagging the ones that overlap the given scanline.
func ExtractOAMDataFromReader(reader MemoryReader, currentLine int, spriteHeight int) *OAMData {
	data := &OAMData{
		Sprites:      make([]SpriteInfo, OAMSpriteCount),
		CurrentLine:  currentLine,
		SpriteHeight: spriteHeight,
	}

	activeCount := 0

	for i := 0; i < OAMSpriteCount; i++ {
		baseAddr := uint16(OAMBaseAddr + i*OAMBytesPerSprite)

		rawY := reader.Read(baseAddr)
		rawX := reader.Read(baseAddr + 1)
		tileIndex := reader.Read(baseAddr + 2)
		attributes := reader.Read(baseAddr + 3)

		sprite := video.Sprite{
			Y:         int(rawY) - SpriteYOffset,
			X:         int(rawX) - SpriteXOffset,
			TileIndex: tileIndex,
			Flags:     attributes,
			OAMIndex:  i,
			Height:    spriteHeight,
		}
		sprite.PaletteOBP1 = bit.IsSet(4, attributes)
		sprite.FlipX = bit.IsSet(5, attributes)
		sprite.FlipY = bit.IsSet(6, attributes)
		sprite.BehindBG = bit.IsSet(7, attributes)

		isVisible := sprite.Y <= currentLine && sprite.Y+spriteHeight > currentLine
		if isVisible {
			activeCount++
		}

		data.Sprites[i] = SpriteInfo{
			Index:     i,
			Sprite:    sprite,
			IsVisible: isVisible,
		}
	}

	data.ActiveSprites = activeCount
	return data
}

// ExtractVRAMDataFromReader decodes all 384 tile patterns plus the tilemap
// selection bits out of the LCD control register.
func ExtractVRAMDataFromReader(reader MemoryReader) *VRAMData {
	data := &VRAMData{
		TilePatterns: make([]video.Tile, TilePatternCount),
	}

	for i := range TilePatternCount {
		baseAddr := uint16(VRAMBaseAddr + i*TileDataSize)
		data.TilePatterns[i] = video.FetchTileWithIndex(reader, baseAddr, i)
	}

	data.TilemapInfo = extractTilemapInfoFromReader(reader)

	return data
}

func extractTilemapInfoFromReader(reader MemoryReader) TilemapInfo {
	lcdc := reader.Read(0xFF40)

	return TilemapInfo{
		BackgroundActive: lcdc&0x01 != 0,
		WindowActive:     lcdc&0x20 != 0,
		LCDCValue:        lcdc,
	}
}
