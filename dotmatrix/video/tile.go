package video

import "github.com/dmgcore/go-dotmatrix/dotmatrix/bit"

// TileRow is one row of a tile pattern (8 pixels) in the two-plane format:
// the low byte carries bit 0 of each pixel's color index, the high byte
// carries bit 1. Bit 7 is the leftmost pixel.
//
// Example: bytes $3C and $7E decode to
//
//	Low  (0x3C): 0 0 1 1 1 1 0 0
//	High (0x7E): 0 1 1 1 1 1 1 0
//	            -----------------
//	Indices:     0 2 3 3 3 3 2 0
//
// The index is translated to a display color by the palette registers (BGP,
// OBP0/OBP1) or by palette memory in color mode. For sprites, index 0 is
// transparent.
type TileRow struct {
	Low  byte
	High byte
}

// GetPixel returns the color index (0-3) at pixelX, where 0 is the leftmost
// pixel.
func (t TileRow) GetPixel(pixelX int) int {
	bitIndex := uint8(7 - pixelX)

	pixel := 0
	if bit.IsSet(bitIndex, t.Low) {
		pixel |= 1
	}
	if bit.IsSet(bitIndex, t.High) {
		pixel |= 2
	}

	return pixel
}

// GetPixelFlipped returns the color index with the row mirrored, for the
// horizontal flip attribute.
func (t TileRow) GetPixelFlipped(pixelX int) int {
	bitIndex := uint8(pixelX)

	pixel := 0
	if bit.IsSet(bitIndex, t.Low) {
		pixel |= 1
	}
	if bit.IsSet(bitIndex, t.High) {
		pixel |= 2
	}

	return pixel
}

// Tile is a complete 8x8 pattern, 16 bytes in video RAM.
type Tile struct {
	Index int
	Rows  [8]TileRow
}

// GetPixel returns the color index (0-3) at (x, y) within the tile.
func (t *Tile) GetPixel(x, y int) int {
	if y < 0 || y >= 8 || x < 0 || x >= 8 {
		return 0
	}
	return t.Rows[y].GetPixel(x)
}

// Pixels returns the whole pattern as an 8x8 grid of color indices, the form
// the debug visualizers consume.
func (t *Tile) Pixels() [8][8]GBColor {
	var pixels [8][8]GBColor
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			pixels[y][x] = GBColor(t.Rows[y].GetPixel(x))
		}
	}
	return pixels
}

// tileFromBytes decodes 16 bytes of pattern data.
func tileFromBytes(data []byte, index int) Tile {
	tile := Tile{Index: index}
	for row := range 8 {
		tile.Rows[row] = TileRow{
			Low:  data[row*2],
			High: data[row*2+1],
		}
	}
	return tile
}

// MemoryReader is the read-only bus view tile fetching needs.
type MemoryReader interface {
	Read(address uint16) byte
}

// FetchTile reads the 16 bytes of a pattern starting at baseAddr.
func FetchTile(memory MemoryReader, baseAddr uint16) Tile {
	var tile Tile
	for row := range 8 {
		rowAddr := baseAddr + uint16(row*2)
		tile.Rows[row] = TileRow{
			Low:  memory.Read(rowAddr),
			High: memory.Read(rowAddr + 1),
		}
	}
	return tile
}

// FetchTileWithIndex reads a pattern and records its index.
func FetchTileWithIndex(memory MemoryReader, baseAddr uint16, index int) Tile {
	tile := FetchTile(memory, baseAddr)
	tile.Index = index
	return tile
}
