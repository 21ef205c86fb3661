//go:build sdl2

package sdl2

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/debug"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/video"
)

const (
	DebugWindowWidth  = 800
	DebugWindowHeight = 600
	DebugWindowTitle  = "Video Debug"

	// Dimensions of the full tile pattern grid, in pixels.
	tileGridWidth  = debug.TilesPerRow * debug.TilePixelWidth
	tileGridHeight = debug.TileRows * debug.TilePixelHeight
	tileGridStride = tileGridWidth * 4
)

// DebugWindow is a second SDL2 window showing the tile pattern table and the
// sprite attribute table, fed from the machine's debug snapshot every frame
// while visible.
type DebugWindow struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	visible  bool

	oamData  *debug.OAMData
	vramData *debug.VRAMData
	palettes *debug.PaletteVisualizer

	needsUpdate bool
}

func NewDebugWindow() *DebugWindow {
	return &DebugWindow{
		needsUpdate: true,
	}
}

func (dw *DebugWindow) Init() error {
	var err error

	dw.window, err = sdl.CreateWindow(
		DebugWindowTitle,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		DebugWindowWidth,
		DebugWindowHeight,
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE,
	)
	if err != nil {
		return fmt.Errorf("create debug window: %w", err)
	}

	dw.renderer, err = sdl.CreateRenderer(dw.window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		dw.Cleanup()
		return fmt.Errorf("create debug renderer: %w", err)
	}

	// One texture holds the whole 16x24 tile pattern grid.
	dw.texture, err = dw.renderer.CreateTexture(
		sdl.PIXELFORMAT_RGBA8888,
		sdl.TEXTUREACCESS_STREAMING,
		tileGridWidth,
		tileGridHeight,
	)
	if err != nil {
		dw.Cleanup()
		return fmt.Errorf("create tile grid texture: %w", err)
	}

	dw.window.Hide()
	return nil
}

func (dw *DebugWindow) SetVisible(visible bool) {
	dw.visible = visible
	if visible {
		dw.window.Show()
		dw.needsUpdate = true
	} else {
		dw.window.Hide()
	}
}

func (dw *DebugWindow) IsVisible() bool {
	return dw.visible
}

func (dw *DebugWindow) IsInitialized() bool {
	return dw.window != nil
}

// ForceRefresh redraws on the next Render even if the data is unchanged.
func (dw *DebugWindow) ForceRefresh() {
	dw.needsUpdate = true
}

func (dw *DebugWindow) UpdateData(oam *debug.OAMData, vram *debug.VRAMData, palettes *debug.PaletteVisualizer) {
	dw.oamData = oam
	dw.vramData = vram
	dw.palettes = palettes
	dw.needsUpdate = true
}

func (dw *DebugWindow) Render() error {
	if !dw.visible || !dw.needsUpdate {
		return nil
	}

	dw.renderer.SetDrawColor(32, 32, 32, 255)
	dw.renderer.Clear()

	if dw.vramData != nil {
		dw.renderTileGrid()
	}
	if dw.oamData != nil {
		dw.renderOAMInfo()
	}
	if dw.palettes != nil {
		dw.renderPalettes()
	}

	dw.renderer.Present()
	dw.needsUpdate = false
	return nil
}

func (dw *DebugWindow) renderTileGrid() {
	grid := dw.vramData.GetTileGrid()
	pixelData := make([]byte, tileGridStride*tileGridHeight)

	for row := 0; row < debug.TileRows && row < len(grid); row++ {
		for col := 0; col < debug.TilesPerRow && col < len(grid[row]); col++ {
			blitTile(pixelData, grid[row][col], row, col)
		}
	}

	if err := dw.texture.Update(nil, unsafe.Pointer(&pixelData[0]), tileGridStride); err != nil {
		slog.Warn("Failed to update debug texture", "error", err)
	}

	// Show the first 8 rows scaled 2x; the full table does not fit at a
	// readable size.
	const showRows = 8
	src := &sdl.Rect{X: 0, Y: 0, W: tileGridWidth, H: showRows * debug.TilePixelHeight}
	dst := &sdl.Rect{X: 400, Y: 50, W: tileGridWidth * 2, H: showRows * debug.TilePixelHeight * 2}
	dw.renderer.Copy(dw.texture, src, dst)
}

// blitTile writes one 8x8 pattern into the grid pixel buffer at its cell.
func blitTile(pixelData []byte, tile video.Tile, row, col int) {
	base := row*debug.TilePixelHeight*tileGridStride + col*debug.TilePixelWidth*4
	pixels := tile.Pixels()

	for y, tileRow := range pixels {
		for x, index := range tileRow {
			off := base + y*tileGridStride + x*4
			if off+3 >= len(pixelData) {
				continue
			}

			r, g, b, a := tileIndexToRGBA(index)

			// ABGR byte order for little-endian RGBA8888.
			pixelData[off] = a
			pixelData[off+1] = b
			pixelData[off+2] = g
			pixelData[off+3] = r
		}
	}
}

func (dw *DebugWindow) renderOAMInfo() {
	oamRect := &sdl.Rect{X: 10, Y: 50, W: 350, H: 500}
	dw.renderer.SetDrawColor(48, 48, 48, 255)
	dw.renderer.FillRect(oamRect)

	dw.renderer.SetDrawColor(128, 128, 128, 255)
	dw.renderer.DrawRect(oamRect)

	// One marker row per sprite: green when visible on the sampled line,
	// gray otherwise, with a second box keyed to the tile index.
	shown := min(len(dw.oamData.Sprites), 20)
	for i, info := range dw.oamData.Sprites[:shown] {
		y := int32(60 + i*20)

		if info.IsVisible {
			dw.renderer.SetDrawColor(100, 200, 100, 255)
		} else {
			dw.renderer.SetDrawColor(100, 100, 100, 255)
		}
		dw.renderer.FillRect(&sdl.Rect{X: 20, Y: y, W: 10, H: 15})

		gray := info.Sprite.TileIndex%200 + 55
		dw.renderer.SetDrawColor(gray, gray, gray, 255)
		dw.renderer.FillRect(&sdl.Rect{X: 40, Y: y, W: 10, H: 15})
	}
}

// renderPalettes draws BGP, OBP0 and OBP1 as rows of four swatches in index
// order, each index resolved through its palette the way the renderer would.
func (dw *DebugWindow) renderPalettes() {
	rows := []debug.PaletteInfo{dw.palettes.BGP, dw.palettes.OBP0, dw.palettes.OBP1}
	for row, palette := range rows {
		y := int32(330 + row*30)
		for i := 0; i < 4; i++ {
			shade := debug.ApplyPalette(video.GBColor(i), palette)
			r, g, b, a := tileIndexToRGBA(shade)
			rect := &sdl.Rect{X: int32(400 + i*28), Y: y, W: 24, H: 24}
			dw.renderer.SetDrawColor(r, g, b, a)
			dw.renderer.FillRect(rect)
			dw.renderer.SetDrawColor(128, 128, 128, 255)
			dw.renderer.DrawRect(rect)
		}
	}
}

var indexGrays = [4]uint8{255, 170, 85, 0}

// tileIndexToRGBA maps a raw tile color index (0-3) to display grays. Tile
// pattern pixels are indices, not palette-resolved colors.
func tileIndexToRGBA(color video.GBColor) (r, g, b, a uint8) {
	if color > 3 {
		// Red makes a bad index obvious.
		return 255, 0, 0, 255
	}
	gray := indexGrays[color]
	return gray, gray, gray, 255
}

func (dw *DebugWindow) Cleanup() error {
	if dw.texture != nil {
		dw.texture.Destroy()
		dw.texture = nil
	}
	if dw.renderer != nil {
		dw.renderer.Destroy()
		dw.renderer = nil
	}
	if dw.window != nil {
		dw.window.Destroy()
		dw.window = nil
	}
	return nil
}
