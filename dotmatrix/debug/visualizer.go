package debug

import (
	"github.com/dmgcore/go-dotmatrix/dotmatrix/addr"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/video"
)

const (
	TilemapWidth  = 32
	TilemapHeight = 32
	ScreenWidth   = 20
	ScreenHeight  = 18
)

// SpriteVisualizer carries everything a sprite viewer needs for one frame:
// the decoded sprite table plus the pattern data and palettes it references.
type SpriteVisualizer struct {
	Sprites      []Sprite
	TileData     []video.Tile
	CurrentLine  uint8
	SpriteHeight int
	PaletteOBP0  uint8
	PaletteOBP1  uint8
}

type Sprite struct {
	Info     SpriteInfo
	TileData video.Tile
	OnScreen bool
	X        int
	Y        int
}

// BackgroundVisualizer is a full copy of both tilemaps together with the
// scroll, window and addressing state that selects what the LCD shows.
type BackgroundVisualizer struct {
	Tilemap           [TilemapHeight][TilemapWidth]uint8
	WindowTilemap     [TilemapHeight][TilemapWidth]uint8
	TileData          []video.Tile
	ScrollX           uint8
	ScrollY           uint8
	WindowX           uint8
	WindowY           uint8
	WindowEnabled     bool
	BGEnabled         bool
	TilemapBase       uint16
	WindowTilemapBase uint16
	TileDataBase      uint16
	PaletteBGP        uint8
}

type PaletteVisualizer struct {
	BGP  PaletteInfo
	OBP0 PaletteInfo
	OBP1 PaletteInfo
}

// PaletteInfo maps the four pixel values through one palette register. The
// colors are shade indexes (0-3), not display colors.
type PaletteInfo struct {
	Raw    uint8
	Colors [4]video.GBColor
}

// fetchTiles reads count consecutive tile patterns starting at base.
func fetchTiles(reader MemoryReader, base uint16, count int) []video.Tile {
	tiles := make([]video.Tile, count)
	for i := range tiles {
		tiles[i] = video.FetchTileWithIndex(reader, base+uint16(i*16), i)
	}
	return tiles
}

// readTilemap copies one 32x32 tilemap out of VRAM.
func readTilemap(reader MemoryReader, base uint16) [TilemapHeight][TilemapWidth]uint8 {
	var m [TilemapHeight][TilemapWidth]uint8
	for row := 0; row < TilemapHeight; row++ {
		for col := 0; col < TilemapWidth; col++ {
			m[row][col] = reader.Read(base + uint16(row*TilemapWidth+col))
		}
	}
	return m
}

// lcdcBase resolves an LCDC select bit to the address region it picks.
func lcdcBase(lcdc, bit uint8, set, clear uint16) uint16 {
	if lcdc&bit != 0 {
		return set
	}
	return clear
}

func onScreen(x, y int) bool {
	return x >= 0 && x < video.FramebufferWidth &&
		y >= 0 && y < video.FramebufferHeight
}

func ExtractSpriteData(reader MemoryReader, currentLine uint8) *SpriteVisualizer {
	vis := &SpriteVisualizer{
		CurrentLine:  currentLine,
		SpriteHeight: 8,
		PaletteOBP0:  reader.Read(addr.OBP0),
		PaletteOBP1:  reader.Read(addr.OBP1),
		TileData:     fetchTiles(reader, 0x8000, 256),
	}
	if reader.Read(addr.LCDC)&0x04 != 0 {
		vis.SpriteHeight = 16
	}

	oam := ExtractOAMDataFromReader(reader, int(currentLine), vis.SpriteHeight)

	vis.Sprites = make([]Sprite, len(oam.Sprites))
	for i, info := range oam.Sprites {
		tileIndex := info.Sprite.TileIndex
		if vis.SpriteHeight == 16 {
			// Tall sprites always start on an even pattern.
			tileIndex &= 0xFE
		}

		vis.Sprites[i] = Sprite{
			Info:     info,
			TileData: vis.TileData[tileIndex],
			X:        info.Sprite.X,
			Y:        info.Sprite.Y,
			OnScreen: onScreen(info.Sprite.X, info.Sprite.Y),
		}
	}

	return vis
}

func ExtractBackgroundData(reader MemoryReader) *BackgroundVisualizer {
	lcdc := reader.Read(addr.LCDC)

	vis := &BackgroundVisualizer{
		BGEnabled:         lcdc&0x01 != 0,
		WindowEnabled:     lcdc&0x20 != 0,
		TilemapBase:       lcdcBase(lcdc, 0x08, 0x9C00, 0x9800),
		WindowTilemapBase: lcdcBase(lcdc, 0x40, 0x9C00, 0x9800),
		TileDataBase:      lcdcBase(lcdc, 0x10, 0x8000, 0x8800),
		ScrollX:           reader.Read(addr.SCX),
		ScrollY:           reader.Read(addr.SCY),
		WindowX:           reader.Read(addr.WX),
		WindowY:           reader.Read(addr.WY),
		PaletteBGP:        reader.Read(addr.BGP),
	}

	vis.Tilemap = readTilemap(reader, vis.TilemapBase)
	vis.WindowTilemap = readTilemap(reader, vis.WindowTilemapBase)

	// First 256 patterns at 0x8000, the remaining 128 at 0x9000 for the
	// signed addressing mode.
	vis.TileData = append(fetchTiles(reader, 0x8000, 256), fetchTiles(reader, 0x9000, 128)...)

	return vis
}

func ExtractPaletteData(reader MemoryReader) *PaletteVisualizer {
	return &PaletteVisualizer{
		BGP:  decodePalette(reader.Read(addr.BGP)),
		OBP0: decodePalette(reader.Read(addr.OBP0)),
		OBP1: decodePalette(reader.Read(addr.OBP1)),
	}
}

func decodePalette(raw uint8) PaletteInfo {
	info := PaletteInfo{Raw: raw}
	for i := range info.Colors {
		info.Colors[i] = video.GBColor((raw >> (2 * i)) & 0x03)
	}
	return info
}

func (sv *SpriteVisualizer) GetVisibleSprites() []Sprite {
	var visible []Sprite
	for _, sprite := range sv.Sprites {
		if sprite.Info.IsVisible && sprite.OnScreen {
			visible = append(visible, sprite)
		}
	}
	return visible
}

func (sv *SpriteVisualizer) GetSpritesOnLine(line uint8) []Sprite {
	var sprites []Sprite
	for _, sprite := range sv.Sprites {
		if int(line) >= sprite.Y && int(line) < sprite.Y+sv.SpriteHeight {
			sprites = append(sprites, sprite)
		}
	}
	return sprites
}

// GetViewportTiles returns the 20x18 tile window the scroll registers select
// out of the 32x32 background map.
func (bv *BackgroundVisualizer) GetViewportTiles() [ScreenHeight][ScreenWidth]uint8 {
	var viewport [ScreenHeight][ScreenWidth]uint8

	baseY := int(bv.ScrollY) / 8
	baseX := int(bv.ScrollX) / 8

	for y := range viewport {
		srcRow := bv.Tilemap[(baseY+y)%TilemapHeight]
		for x := range viewport[y] {
			viewport[y][x] = srcRow[(baseX+x)%TilemapWidth]
		}
	}

	return viewport
}

// GetWindowViewport reports whether the window overlay is showing and where
// its top-left corner lands on screen. WX carries a +7 hardware offset.
func (bv *BackgroundVisualizer) GetWindowViewport() (active bool, startX, startY int) {
	if !bv.WindowEnabled || bv.WindowX < 7 || bv.WindowX >= 167 {
		return false, 0, 0
	}
	return true, int(bv.WindowX) - 7, int(bv.WindowY)
}

// ApplyPalette maps a pixel value through a palette to its shade index.
func ApplyPalette(color video.GBColor, palette PaletteInfo) video.GBColor {
	return palette.Colors[color&0x03]
}
