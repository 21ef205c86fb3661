package video

import (
	"github.com/dmgcore/go-dotmatrix/dotmatrix/addr"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/bit"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/interrupt"
)

type GpuMode int

const (
	oamRead GpuMode = iota
	vramRead
	hblank
	vblank
)

const (
	oamScanlineCycles  = 80
	vramScanlineCycles = 172
	hblankCycles       = 204
	scanlineCycles     = oamScanlineCycles + vramScanlineCycles + hblankCycles
	vblankCycles       = 10 * scanlineCycles
)

const (
	vramBankSize   = 0x2000
	oamSize        = 0xA0
	paletteRAMSize = 0x40
	tilesPerBank   = 384
)

// LCDC (LCD Control) register bits
// Bit 7 - LCD Display Enable (0=Off, 1=On)
// Bit 6 - Window Tile Map Display Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 5 - Window Display Enable (0=Off, 1=On)
// Bit 4 - BG & Window Tile Data Select (0=8800-97FF, 1=8000-8FFF)
// Bit 3 - BG Tile Map Display Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 2 - OBJ (Sprite) Size (0=8x8, 1=8x16)
// Bit 1 - OBJ (Sprite) Display Enable (0=Off, 1=On)
// Bit 0 - BG Display (0=Off, 1=On); in color mode this is the master
//         background priority instead

type lcdcFlag uint8

const (
	lcdDisplayEnable       lcdcFlag = 7
	windowTileMapSelect    lcdcFlag = 6
	windowDisplayEnable    lcdcFlag = 5
	bgWindowTileDataSelect lcdcFlag = 4
	bgTileMapDisplaySelect lcdcFlag = 3
	spriteSize             lcdcFlag = 2
	spriteDisplayEnable    lcdcFlag = 1
	bgDisplay              lcdcFlag = 0
)

// GPU owns everything on the picture side of the bus: both video RAM banks,
// object attribute memory, the LCD register file and palette memory. It
// steps a four-phase scanline machine and composites one framebuffer row at
// the end of each pixel-transfer phase.
type GPU struct {
	irq         *interrupt.Controller
	framebuffer *FrameBuffer
	oamView     *OAM

	// HBlankHook runs at each H-blank entry, right after the line is
	// drawn. The machine points it at the bus's H-blank DMA step.
	HBlankHook func()

	colorMode bool
	running   bool
	mode      GpuMode
	cycles    int
	line      uint8

	vram [2 * vramBankSize]byte
	oam  [oamSize]byte

	lcdc byte
	stat byte // interrupt enable bits 3-6 as written
	scy  byte
	scx  byte
	lyc  byte
	bgp  byte
	obp0 byte
	obp1 byte
	wy   byte
	wx   byte

	// color mode: bank select and palette memory ports
	vbk  byte
	bgpi byte
	obpi byte
	bgpd [paletteRAMSize]byte
	obpd [paletteRAMSize]byte
}

// NewGpu creates a picture unit wired to the interrupt controller it raises
// the vertical-blank and status interrupts on.
func NewGpu(irq *interrupt.Controller, colorMode bool) *GPU {
	g := &GPU{
		irq:         irq,
		framebuffer: NewFrameBuffer(),
		colorMode:   colorMode,
		mode:        hblank,
	}
	g.oamView = NewOAM(g, colorMode)
	for i := range paletteRAMSize {
		g.bgpd[i] = 0xFF
		g.obpd[i] = 0xFF
	}
	return g
}

// GetFrameBuffer returns the live framebuffer. Its contents are stable
// between a frame-completion signal and the next pixel-transfer phase.
func (g *GPU) GetFrameBuffer() *FrameBuffer {
	return g.framebuffer
}

// Read returns a byte from video RAM, object attribute memory or the LCD
// register file.
func (g *GPU) Read(address uint16) byte {
	switch {
	case address >= addr.VRAMStart && address <= addr.VRAMEnd:
		return g.vram[g.vramOffset(address)]
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		return g.oam[address-addr.OAMStart]
	}

	switch address {
	case addr.LCDC:
		return g.lcdc
	case addr.STAT:
		return g.readStatus()
	case addr.SCY:
		return g.scy
	case addr.SCX:
		return g.scx
	case addr.LY:
		return g.line
	case addr.LYC:
		return g.lyc
	case addr.BGP:
		return g.bgp
	case addr.OBP0:
		return g.obp0
	case addr.OBP1:
		return g.obp1
	case addr.WY:
		return g.wy
	case addr.WX:
		return g.wx
	case addr.VBK:
		if !g.colorMode {
			return 0xFF
		}
		return g.vbk | 0xFE
	case addr.BGPI:
		return g.bgpi
	case addr.BGPD:
		return g.bgpd[g.bgpi&0x3F]
	case addr.OBPI:
		return g.obpi
	case addr.OBPD:
		return g.obpd[g.obpi&0x3F]
	}
	return 0xFF
}

// Write stores a byte into video RAM, object attribute memory or the LCD
// register file.
func (g *GPU) Write(address uint16, value byte) {
	switch {
	case address >= addr.VRAMStart && address <= addr.VRAMEnd:
		g.vram[g.vramOffset(address)] = value
		return
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		g.oam[address-addr.OAMStart] = value
		return
	}

	switch address {
	case addr.LCDC:
		g.lcdc = value
	case addr.STAT:
		// only the interrupt enable bits are writable
		g.stat = value & 0x78
	case addr.SCY:
		g.scy = value
	case addr.SCX:
		g.scx = value
	case addr.LY:
		// read-only
	case addr.LYC:
		g.lyc = value
	case addr.BGP:
		g.bgp = value
	case addr.OBP0:
		g.obp0 = value
	case addr.OBP1:
		g.obp1 = value
	case addr.WY:
		g.wy = value
	case addr.WX:
		g.wx = value
	case addr.VBK:
		if g.colorMode {
			g.vbk = value & 0x01
		}
	case addr.BGPI:
		g.bgpi = value & 0xBF
	case addr.BGPD:
		g.bgpd[g.bgpi&0x3F] = value
		g.bgpi = autoIncrement(g.bgpi)
	case addr.OBPI:
		g.obpi = value & 0xBF
	case addr.OBPD:
		g.obpd[g.obpi&0x3F] = value
		g.obpi = autoIncrement(g.obpi)
	}
}

func (g *GPU) vramOffset(address uint16) int {
	return int(g.vbk)*vramBankSize + int(address-addr.VRAMStart)
}

// autoIncrement advances a palette index port after a data write when its
// high bit is set.
func autoIncrement(index byte) byte {
	if index&0x80 == 0 {
		return index
	}
	return ((index + 1) & 0x3F) | 0x80
}

// readStatus composes the status register: bit 7 is unwired and reads 1,
// bits 6-3 are the written interrupt enables, bit 2 is the live LY=LYC
// comparison and bits 1-0 encode the mode.
func (g *GPU) readStatus() byte {
	status := 0x80 | g.stat
	if g.line == g.lyc {
		status |= 0x04
	}
	switch g.mode {
	case vblank:
		status |= 0x01
	case oamRead:
		status |= 0x02
	case vramRead:
		status |= 0x03
	}
	return status
}

func (g *GPU) lcdcSet(flag lcdcFlag) bool {
	return bit.IsSet(uint8(flag), g.lcdc)
}

// Advance moves the scanline machine forward by the given number of cycles
// and reports whether a frame just completed: entry into the vertical
// blank, once all 144 visible lines are composited. With the display
// disabled the machine idles on a blank white frame.
func (g *GPU) Advance(cycles int) bool {
	if !g.lcdcSet(lcdDisplayEnable) {
		if g.running {
			g.line = 0
			g.setMode(hblank)
			g.cycles = 0
			g.running = false
			g.framebuffer.Clear(WhiteColor)
		}
		return false
	}
	if !g.running {
		g.setMode(oamRead)
		g.cycles = 0
		g.running = true
	}

	frameDone := false
	g.cycles += cycles

	switch g.mode {
	case oamRead:
		if g.cycles >= oamScanlineCycles {
			g.cycles -= oamScanlineCycles
			g.setMode(vramRead)
		}
	case vramRead:
		if g.cycles >= vramScanlineCycles {
			g.cycles -= vramScanlineCycles
			g.setMode(hblank)
			g.drawScanline(g.line)
			if g.HBlankHook != nil {
				g.HBlankHook()
			}
		}
	case hblank:
		if g.cycles >= hblankCycles {
			g.cycles -= hblankCycles
			g.line++
			if g.line >= FramebufferHeight {
				g.setMode(vblank)
				frameDone = true
			} else {
				g.setMode(oamRead)
			}
		}
	case vblank:
		if g.cycles >= vblankCycles {
			g.cycles -= vblankCycles
			g.line = 0
			g.setMode(oamRead)
		} else {
			g.line = uint8(FramebufferHeight + g.cycles/scanlineCycles)
		}
	}

	g.checkLineCompare()
	return frameDone
}

// setMode transitions the status mode, raising the status interrupt when
// the enable bit for the new mode is set and the vertical-blank interrupt
// on entry into that period.
func (g *GPU) setMode(mode GpuMode) {
	if g.mode == mode {
		return
	}
	g.mode = mode

	requestStatus := false
	switch mode {
	case hblank:
		requestStatus = bit.IsSet(3, g.stat)
	case vblank:
		requestStatus = bit.IsSet(4, g.stat)
	case oamRead:
		requestStatus = bit.IsSet(5, g.stat)
	}
	if requestStatus {
		g.irq.Request(addr.LCDSTATInterrupt)
	}
	if mode == vblank {
		g.irq.Request(addr.VBlankInterrupt)
	}
}

func (g *GPU) checkLineCompare() {
	if g.line == g.lyc && bit.IsSet(6, g.stat) {
		g.irq.Request(addr.LCDSTATInterrupt)
	}
}

func (g *GPU) drawScanline(line uint8) {
	if line >= FramebufferHeight {
		return
	}
	colors, priority := g.drawBackground(line)
	if g.lcdcSet(spriteDisplayEnable) {
		g.drawSprites(line, &colors, &priority)
	}
}

// drawBackground composites the background and window for one line. It
// returns the raw color indices of the line and, in color mode, the
// per-pixel background priority flags; sprite compositing consumes both.
//
// In non-color mode, control bit 0 clear blanks background and window to
// white together. In color mode they always render and bit 0 only matters
// for priority.
func (g *GPU) drawBackground(line uint8) (colors, priority [FramebufferWidth]uint8) {
	bgEnabled := g.colorMode || g.lcdcSet(bgDisplay)
	windowEnabled := bgEnabled && g.lcdcSet(windowDisplayEnable) &&
		g.wx <= 166 && g.wy <= line

	if !bgEnabled {
		for i := range uint(FramebufferWidth) {
			g.framebuffer.SetPixel(i, uint(line), WhiteColor)
		}
		return
	}

	unsigned := g.lcdcSet(bgWindowTileDataSelect)

	for i := uint8(0); i < FramebufferWidth; i++ {
		// the window takes over from its left edge (WX holds X+7)
		inWindow := windowEnabled && g.wx-7 <= i

		var x, y uint8
		var altMap bool
		if inWindow {
			x = i - g.wx + 7
			y = line - g.wy
			altMap = g.lcdcSet(windowTileMapSelect)
		} else {
			x = i + g.scx
			y = line + g.scy
			altMap = g.lcdcSet(bgTileMapDisplaySelect)
		}

		mapBase := addr.TileMap0 - addr.VRAMStart
		if altMap {
			mapBase = addr.TileMap1 - addr.VRAMStart
		}
		mapIndex := int(mapBase) + int(y/8)*32 + int(x/8)

		tileNumber := g.vram[mapIndex]
		var attrs tileAttributes
		if g.colorMode {
			attrs = parseTileAttributes(g.vram[vramBankSize+mapIndex])
		}

		rowIndex := int(y % 8)
		if attrs.flipY {
			rowIndex = 7 - rowIndex
		}

		var dataOffset int
		if unsigned {
			dataOffset = int(tileNumber)*16 + rowIndex*2
		} else {
			dataOffset = 0x1000 + int(int8(tileNumber))*16 + rowIndex*2
		}
		dataOffset += attrs.bank * vramBankSize

		row := TileRow{Low: g.vram[dataOffset], High: g.vram[dataOffset+1]}
		var colorIndex int
		if attrs.flipX {
			colorIndex = row.GetPixelFlipped(int(x % 8))
		} else {
			colorIndex = row.GetPixel(int(x % 8))
		}

		var pixel GBColor
		if g.colorMode {
			pixel = colorPaletteShade(g.bgpd[:], attrs.palette, colorIndex)
			if attrs.priority {
				priority[i] = 1
			}
		} else {
			pixel = monoPaletteShade(g.bgp, colorIndex)
		}

		colors[i] = uint8(colorIndex)
		g.framebuffer.SetPixel(uint(i), uint(line), pixel)
	}
	return
}

// drawSprites overlays the selected sprites for one line. Ownership of
// contested pixels is resolved up front, so draw order does not matter.
func (g *GPU) drawSprites(line uint8, bgColors, bgPriority *[FramebufferWidth]uint8) {
	sprites := g.oamView.GetSpritesForScanline(int(line))
	masterPriority := g.lcdcSet(bgDisplay)

	for i := range sprites {
		sprite := &sprites[i]

		rowIndex := int(line) - sprite.Y
		if sprite.FlipY {
			rowIndex = sprite.Height - 1 - rowIndex
		}

		tileIndex := int(sprite.TileIndex)
		if sprite.Height == 16 {
			// tall sprites ignore bit 0 and span two adjacent tiles
			tileIndex &= 0xFE
		}

		dataOffset := tileIndex*16 + rowIndex*2
		if g.colorMode {
			dataOffset += sprite.VRAMBank * vramBankSize
		}
		row := TileRow{Low: g.vram[dataOffset], High: g.vram[dataOffset+1]}

		for pixelX := range 8 {
			screenX := sprite.X + pixelX
			if screenX < 0 || screenX >= FramebufferWidth {
				continue
			}
			if !sprite.HasPriorityForPixel(pixelX) {
				continue
			}

			var colorIndex int
			if sprite.FlipX {
				colorIndex = row.GetPixelFlipped(pixelX)
			} else {
				colorIndex = row.GetPixel(pixelX)
			}
			if colorIndex == 0 {
				// index 0 is transparent for sprites
				continue
			}

			if g.spriteHidden(sprite, bgColors[screenX], bgPriority[screenX], masterPriority) {
				continue
			}

			var pixel GBColor
			if g.colorMode {
				pixel = colorPaletteShade(g.obpd[:], sprite.ColorPalette, colorIndex)
			} else {
				obp := g.obp0
				if sprite.PaletteOBP1 {
					obp = g.obp1
				}
				pixel = monoPaletteShade(obp, colorIndex)
			}
			g.framebuffer.SetPixel(uint(screenX), uint(line), pixel)
		}
	}
}

// spriteHidden applies background-versus-sprite priority for one pixel.
// Background color 0 never hides a sprite. In color mode, a cleared control
// bit 0 strips the background of all priority; otherwise either the
// sprite's own flag or the tile attribute puts the background on top.
func (g *GPU) spriteHidden(sprite *Sprite, bgColor, bgPriority uint8, masterPriority bool) bool {
	if bgColor == 0 {
		return false
	}
	if g.colorMode {
		if !masterPriority {
			return false
		}
		return sprite.BehindBG || bgPriority != 0
	}
	return sprite.BehindBG
}

// tileAttributes is the color-mode background map attribute byte, stored in
// bank 1 at the same offset as the tile number.
type tileAttributes struct {
	palette  uint8
	bank     int
	flipX    bool
	flipY    bool
	priority bool
}

func parseTileAttributes(value byte) tileAttributes {
	return tileAttributes{
		palette:  value & 0x07,
		bank:     int(value>>3) & 0x01,
		flipX:    bit.IsSet(5, value),
		flipY:    bit.IsSet(6, value),
		priority: bit.IsSet(7, value),
	}
}

// monoPaletteShade resolves a color index through a monochrome palette
// register: each two-bit field selects the shade for one index.
func monoPaletteShade(palette byte, colorIndex int) GBColor {
	return ByteToColor(palette >> (2 * colorIndex))
}

// colorPaletteShade resolves a color index through palette memory. Each
// palette holds four little-endian 15-bit entries of five bits per channel
// (red in the low bits), scaled to eight bits for display.
func colorPaletteShade(paletteRAM []byte, palette uint8, colorIndex int) GBColor {
	base := int(palette&0x07)*8 + (colorIndex&0x03)*2
	raw := bit.Combine(paletteRAM[base+1], paletteRAM[base])
	r := uint32(raw&0x001F) * 8
	green := uint32(raw>>5&0x001F) * 8
	b := uint32(raw>>10&0x001F) * 8
	return GBColor(r<<24 | green<<16 | b<<8 | 0xFF)
}

// Tiles decodes all 384 patterns from the selected video RAM bank, for
// debug views.
func (g *GPU) Tiles() []Tile {
	tiles := make([]Tile, tilesPerBank)
	for i := range tiles {
		offset := int(g.vbk)*vramBankSize + i*16
		tiles[i] = tileFromBytes(g.vram[offset:offset+16], i)
	}
	return tiles
}
