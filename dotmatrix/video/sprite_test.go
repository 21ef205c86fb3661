package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/addr"
)

// Sprite priority rules under test:
//  1. sprites with lower X coordinates win contested pixels
//  2. ties go to the lower OAM index
//  3. in color mode, the OAM index alone decides
//  4. the priority flag puts sprites behind background colors 1-3

func writeSpriteTile(gpu *GPU, tileIndex int, tileData [16]byte) {
	base := addr.TileData0 + uint16(tileIndex*16)
	for i, data := range tileData {
		gpu.Write(base+uint16(i), data)
	}
}

func writeSpriteEntry(gpu *GPU, oamIndex, x, y int, tileIndex, flags byte) {
	base := addr.OAMStart + uint16(oamIndex*4)
	gpu.Write(base, byte(y+16))
	gpu.Write(base+1, byte(x+8))
	gpu.Write(base+2, tileIndex)
	gpu.Write(base+3, flags)
}

func TestSpritePriorityXCoordinate(t *testing.T) {
	solidColor3 := [16]byte{
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	}
	solidColor2 := [16]byte{
		0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF,
		0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF,
	}
	solidColor1 := [16]byte{
		0xFF, 0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF, 0x00,
		0xFF, 0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF, 0x00,
	}
	colorOf := map[byte]uint32{
		1: uint32(BlackColor),     // tile 1: color 3
		2: uint32(DarkGreyColor),  // tile 2: color 2
		3: uint32(LightGreyColor), // tile 3: color 1
	}

	tests := []struct {
		name    string
		sprites []struct {
			x    int
			tile byte
		}
		expectedOwner []int // owning sprite per pixel at y=50, -1 for background
	}{
		{
			name: "lower X coordinate has priority",
			sprites: []struct {
				x    int
				tile byte
			}{
				{x: 20, tile: 1},
				{x: 10, tile: 2},
			},
			expectedOwner: []int{
				-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, // 0-9
				1, 1, 1, 1, 1, 1, 1, 1, // 10-17: sprite 1
				-1, -1, // 18-19
				0, 0, 0, 0, 0, 0, 0, 0, // 20-27: sprite 0
			},
		},
		{
			name: "same X, lower OAM index has priority",
			sprites: []struct {
				x    int
				tile byte
			}{
				{x: 20, tile: 1},
				{x: 20, tile: 2},
			},
			expectedOwner: []int{
				-1, -1, -1, -1, -1, -1, -1, -1, -1, -1,
				-1, -1, -1, -1, -1, -1, -1, -1, -1, -1,
				0, 0, 0, 0, 0, 0, 0, 0, // 20-27: sprite 0 wins the tie
			},
		},
		{
			name: "X coordinate first, then OAM index",
			sprites: []struct {
				x    int
				tile byte
			}{
				{x: 15, tile: 1},
				{x: 10, tile: 2},
				{x: 15, tile: 3},
			},
			expectedOwner: []int{
				-1, -1, -1, -1, -1, -1, -1, -1, -1, -1,
				1, 1, 1, 1, 1, // 10-14: sprite 1 alone
				1, 1, 1, // 15-17: sprite 1 still wins on X
				0, 0, 0, 0, 0, // 18-22: sprite 0 beats sprite 2 on the tie
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gpu, _ := newTestGpu(false)

			gpu.Write(addr.LCDC, 0x93) // LCD on, sprites on, BG on
			gpu.Write(addr.BGP, 0xE4)
			gpu.Write(addr.OBP0, 0xE4)

			writeSpriteTile(gpu, 1, solidColor3)
			writeSpriteTile(gpu, 2, solidColor2)
			writeSpriteTile(gpu, 3, solidColor1)

			for i, sprite := range tt.sprites {
				writeSpriteEntry(gpu, i, sprite.x, 50, sprite.tile, 0x00)
			}

			gpu.drawScanline(50)

			fb := gpu.GetFrameBuffer()
			for x, owner := range tt.expectedOwner {
				pixel := fb.GetPixel(uint(x), 50)
				if owner == -1 {
					assert.Equal(t, uint32(WhiteColor), pixel,
						"pixel %d should be background", x)
				} else {
					assert.Equal(t, colorOf[tt.sprites[owner].tile], pixel,
						"pixel %d should show sprite %d", x, owner)
				}
			}
		})
	}
}

func TestTenSpriteLimitPerScanline(t *testing.T) {
	gpu, _ := newTestGpu(false)

	gpu.Write(addr.LCDC, 0x93)
	gpu.Write(addr.BGP, 0xE4)
	gpu.Write(addr.OBP0, 0xE4)

	solid := [16]byte{
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	}

	// 12 sprites on the same scanline, spread out with no overlap
	for i := 0; i < 12; i++ {
		writeSpriteTile(gpu, i+1, solid)
		writeSpriteEntry(gpu, i, 8+i*8, 50, byte(i+1), 0x00)
	}

	gpu.drawScanline(50)

	fb := gpu.GetFrameBuffer()
	bgColor := fb.GetPixel(0, 50)

	for i := 0; i < 10; i++ {
		x := uint(8 + i*8)
		assert.NotEqual(t, bgColor, fb.GetPixel(x, 50), "sprite %d should be visible", i)
	}

	for i := 10; i < 12; i++ {
		x := uint(8 + i*8)
		assert.Equal(t, bgColor, fb.GetPixel(x, 50),
			"sprite %d should not be visible past the limit", i)
	}
}

func TestOffScreenSpritesCountTowardLimit(t *testing.T) {
	gpu, _ := newTestGpu(false)

	gpu.Write(addr.LCDC, 0x92) // LCD on, sprites on, BG off
	gpu.Write(addr.OBP0, 0xE4)

	solid := [16]byte{
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	}

	// eight sprites fully off the left edge, then four visible ones;
	// the off-screen entries still occupy selection slots
	for i := 0; i < 12; i++ {
		writeSpriteTile(gpu, i+1, solid)
		x := -8
		if i >= 8 {
			x = 12 + i*10
		}
		writeSpriteEntry(gpu, i, x, 50, byte(i+1), 0x00)
	}

	gpu.drawScanline(50)

	fb := gpu.GetFrameBuffer()
	assert.Equal(t, uint32(BlackColor), fb.GetPixel(92, 50), "sprite 8 should be visible")
	assert.Equal(t, uint32(BlackColor), fb.GetPixel(102, 50), "sprite 9 should be visible")
	assert.Equal(t, uint32(WhiteColor), fb.GetPixel(112, 50), "sprite 10 exceeds the limit")
	assert.Equal(t, uint32(WhiteColor), fb.GetPixel(122, 50), "sprite 11 exceeds the limit")
}

func TestSpritePriorityOverBackground(t *testing.T) {
	tests := []struct {
		name          string
		bgPixel       byte
		behindBG      bool
		spritePixel   byte
		expectedDrawn bool
	}{
		{"sprite above BG color 0", 0, false, 1, true},
		{"sprite above BG color 1", 1, false, 1, true},
		{"sprite above BG color 2", 2, false, 1, true},
		{"sprite above BG color 3", 3, false, 1, true},

		{"sprite behind BG, over color 0", 0, true, 1, true},
		{"sprite behind BG, under color 1", 1, true, 1, false},
		{"sprite behind BG, under color 2", 2, true, 1, false},
		{"sprite behind BG, under color 3", 3, true, 1, false},

		{"transparent sprite never drawn", 0, false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gpu, _ := newTestGpu(false)

			gpu.Write(addr.LCDC, 0x93)
			gpu.Write(addr.BGP, 0xE4)
			gpu.Write(addr.OBP0, 0xE4)

			// the whole background map points at tile 0
			writeSpriteTile(gpu, 0, createColorTile(int(tt.bgPixel)))
			writeSpriteTile(gpu, 1, createColorTile(int(tt.spritePixel)))

			flags := byte(0)
			if tt.behindBG {
				flags |= 0x80
			}
			writeSpriteEntry(gpu, 0, 50, 50, 1, flags)

			gpu.drawScanline(50)

			palette := []GBColor{WhiteColor, LightGreyColor, DarkGreyColor, BlackColor}
			expected := palette[tt.bgPixel]
			if tt.expectedDrawn {
				expected = palette[tt.spritePixel]
			}

			assert.Equal(t, uint32(expected), gpu.framebuffer.GetPixel(50, 50))
		})
	}
}

func TestSpriteDisplayEnable(t *testing.T) {
	gpu, _ := newTestGpu(false)

	gpu.Write(addr.BGP, 0xE4)
	gpu.Write(addr.OBP0, 0xE4)
	writeSpriteTile(gpu, 1, createColorTile(3))
	writeSpriteEntry(gpu, 0, 20, 50, 1, 0x00)

	// control bit 1 clear leaves the line free of sprites
	gpu.Write(addr.LCDC, 0x91)
	gpu.drawScanline(50)
	assert.Equal(t, uint32(WhiteColor), gpu.framebuffer.GetPixel(20, 50))

	gpu.Write(addr.LCDC, 0x93)
	gpu.drawScanline(50)
	assert.Equal(t, uint32(BlackColor), gpu.framebuffer.GetPixel(20, 50))
}

func TestSpriteFlips(t *testing.T) {
	gpu, _ := newTestGpu(false)

	gpu.Write(addr.LCDC, 0x93)
	gpu.Write(addr.BGP, 0xE4)
	gpu.Write(addr.OBP0, 0xE4)

	// one marked pixel at tile position (0, 0)
	var tile [16]byte
	tile[0] = 0x80
	writeSpriteTile(gpu, 1, tile)

	tests := []struct {
		name          string
		flags         byte
		expectX       int
		expectLine    int
		expectedColor uint32
	}{
		{"no flip", 0x00, 20, 50, uint32(LightGreyColor)},
		{"flip X mirrors horizontally", 0x20, 27, 50, uint32(LightGreyColor)},
		{"flip Y mirrors vertically", 0x40, 20, 57, uint32(LightGreyColor)},
		{"both flips", 0x60, 27, 57, uint32(LightGreyColor)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gpu.framebuffer.Clear(WhiteColor)
			writeSpriteEntry(gpu, 0, 20, 50, 1, tt.flags)

			gpu.drawScanline(uint8(tt.expectLine))

			assert.Equal(t, tt.expectedColor,
				gpu.framebuffer.GetPixel(uint(tt.expectX), uint(tt.expectLine)))

			// the opposite corner of that line stays background
			otherX := uint(20 + 27 - tt.expectX)
			assert.Equal(t, uint32(WhiteColor),
				gpu.framebuffer.GetPixel(otherX, uint(tt.expectLine)))
		})
	}
}

func TestTallSpritesSpanTwoTiles(t *testing.T) {
	gpu, _ := newTestGpu(false)

	gpu.Write(addr.LCDC, 0x96) // LCD on, 8x16 sprites, sprites on, BG on
	gpu.Write(addr.BGP, 0xE4)
	gpu.Write(addr.OBP0, 0xE4)

	// tile 2 rows are color 1, tile 3 rows are color 2
	var upper, lower [16]byte
	for row := 0; row < 8; row++ {
		upper[row*2] = 0xFF
		lower[row*2+1] = 0xFF
	}
	writeSpriteTile(gpu, 2, upper)
	writeSpriteTile(gpu, 3, lower)

	// bit 0 of the tile index is ignored for tall sprites
	writeSpriteEntry(gpu, 0, 20, 50, 0x03, 0x00)

	gpu.drawScanline(50)
	assert.Equal(t, uint32(LightGreyColor), gpu.framebuffer.GetPixel(20, 50),
		"top half comes from the even tile")

	gpu.drawScanline(58)
	assert.Equal(t, uint32(DarkGreyColor), gpu.framebuffer.GetPixel(20, 58),
		"bottom half comes from the odd tile")
}

func TestSpriteColorModePriorityIsOAMOrder(t *testing.T) {
	gpu, _ := newTestGpu(true)

	gpu.Write(addr.LCDC, 0x93)

	// object palette 0 color 1 is red, palette 1 color 1 is blue
	gpu.Write(addr.OBPI, 0x80|0x02)
	gpu.Write(addr.OBPD, 0x1F)
	gpu.Write(addr.OBPD, 0x00)
	gpu.Write(addr.OBPI, 0x80|0x0A)
	gpu.Write(addr.OBPD, 0x00)
	gpu.Write(addr.OBPD, 0x7C)

	solidColor1 := [16]byte{
		0xFF, 0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF, 0x00,
		0xFF, 0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF, 0x00,
	}
	writeSpriteTile(gpu, 1, solidColor1)

	// sprite 0 at X=20 uses palette 0, sprite 1 at X=15 uses palette 1;
	// they contest pixels 20-22
	writeSpriteEntry(gpu, 0, 20, 50, 1, 0x00)
	writeSpriteEntry(gpu, 1, 15, 50, 1, 0x01)

	gpu.drawScanline(50)

	fb := gpu.GetFrameBuffer()
	assert.Equal(t, uint32(0x0000F8FF), fb.GetPixel(15, 50), "sprite 1 alone")
	assert.Equal(t, uint32(0xF80000FF), fb.GetPixel(20, 50),
		"sprite 0 wins the overlap by OAM order despite its higher X")
	assert.Equal(t, uint32(0xF80000FF), fb.GetPixel(27, 50), "sprite 0 alone")
}

func TestSpriteColorModeMasterPriority(t *testing.T) {
	newSetup := func(lcdc byte) *GPU {
		gpu, _ := newTestGpu(true)
		gpu.Write(addr.LCDC, lcdc)

		// background tile 0 is solid color 1, drawn green
		writeSpriteTile(gpu, 0, createColorTile(1))
		gpu.Write(addr.BGPI, 0x80|0x02)
		gpu.Write(addr.BGPD, 0xE0)
		gpu.Write(addr.BGPD, 0x03)

		// sprite color 1 is red, flagged behind the background
		gpu.Write(addr.OBPI, 0x80|0x02)
		gpu.Write(addr.OBPD, 0x1F)
		gpu.Write(addr.OBPD, 0x00)
		writeSpriteTile(gpu, 1, createColorTile(1))
		writeSpriteEntry(gpu, 0, 50, 50, 1, 0x80)

		return gpu
	}

	t.Run("bit 0 set honors the sprite flag", func(t *testing.T) {
		gpu := newSetup(0x93)
		gpu.drawScanline(50)
		assert.Equal(t, uint32(0x00F800FF), gpu.framebuffer.GetPixel(50, 50),
			"background color 1 hides the flagged sprite")
	})

	t.Run("bit 0 clear lifts sprites above everything", func(t *testing.T) {
		gpu := newSetup(0x92)
		gpu.drawScanline(50)
		assert.Equal(t, uint32(0xF80000FF), gpu.framebuffer.GetPixel(50, 50),
			"sprites ignore priority when the background loses bit 0")
	})
}

func TestSpriteColorModeTileAttributePriority(t *testing.T) {
	gpu, _ := newTestGpu(true)

	gpu.Write(addr.LCDC, 0x93)

	// background tile 0 solid color 1, green, with the map attribute
	// priority bit set
	writeSpriteTile(gpu, 0, createColorTile(1))
	gpu.Write(addr.VBK, 0x01)
	for i := uint16(0); i < 32; i++ {
		gpu.Write(addr.TileMap0+i, 0x80)
	}
	gpu.Write(addr.VBK, 0x00)
	gpu.Write(addr.BGPI, 0x80|0x02)
	gpu.Write(addr.BGPD, 0xE0)
	gpu.Write(addr.BGPD, 0x03)

	// sprite not flagged behind, red
	gpu.Write(addr.OBPI, 0x80|0x02)
	gpu.Write(addr.OBPD, 0x1F)
	gpu.Write(addr.OBPD, 0x00)
	writeSpriteTile(gpu, 1, createColorTile(1))
	writeSpriteEntry(gpu, 0, 50, 2, 1, 0x00)

	gpu.drawScanline(2)

	assert.Equal(t, uint32(0x00F800FF), gpu.framebuffer.GetPixel(50, 2),
		"the map attribute alone can put the background on top")
}
