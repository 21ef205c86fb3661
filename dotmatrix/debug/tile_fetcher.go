package debug

import (
	"github.com/dmgcore/go-dotmatrix/dotmatrix/video"
)

// FetchTileForIndex resolves a tile index to pattern data using the same
// addressing rules as the renderer, so viewers show what the LCD shows.
func FetchTileForIndex(reader MemoryReader, tileIndex byte, baseAddr uint16, signed bool) video.Tile {
	var tileAddr uint16

	if signed {
		// Signed mode anchors at 0x8800: index 0 lands on 0x9000 and
		// 0x80 (-128) on 0x8800 itself.
		signedIndex := int8(tileIndex)
		tileAddr = uint16(int(baseAddr) + int(signedIndex)*16)
	} else {
		tileAddr = baseAddr + uint16(tileIndex)*16
	}

	var tile video.Tile
	tile.Index = int(tileIndex)

	for row := 0; row < 8; row++ {
		rowAddr := tileAddr + uint16(row*2)
		tile.Rows[row] = video.TileRow{
			Low:  reader.Read(rowAddr),
			High: reader.Read(rowAddr + 1),
		}
	}

	return tile
}

// GetTileForBackgroundIndex picks the right entry out of a 384-tile slice for
// a background or window map index under the active addressing mode.
func GetTileForBackgroundIndex(tiles []video.Tile, tileIndex byte, useSigned bool) video.Tile {
	if !useSigned {
		return tiles[tileIndex]
	}

	// Signed mode: 0-127 live at slots 256-383, 128-255 at slots 0-127.
	if tileIndex < 128 {
		arrayIndex := int(tileIndex) + 256
		if arrayIndex < len(tiles) {
			return tiles[arrayIndex]
		}
		// Caller only loaded 256 tiles.
		return tiles[0]
	}

	return tiles[int(tileIndex)-128]
}
