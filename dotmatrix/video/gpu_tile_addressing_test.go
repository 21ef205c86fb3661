package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/addr"
)

const defaultPalette = 0xE4

func TestGPUSignedTileAddressing(t *testing.T) {
	tests := []struct {
		name             string
		tileNumber       byte
		expectedTileAddr uint16
	}{
		{"Tile -128 (0x80)", 0x80, 0x8800},
		{"Tile -127 (0x81)", 0x81, 0x8810},
		{"Tile -1 (0xFF)", 0xFF, 0x8FF0},
		{"Tile 0 (0x00)", 0x00, 0x9000},
		{"Tile 1 (0x01)", 0x01, 0x9010},
		{"Tile 127 (0x7F)", 0x7F, 0x97F0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gpu, _ := newTestGpu(false)

			gpu.Write(addr.LCDC, 0x81) // LCD on, BG on, signed tiles
			gpu.Write(addr.BGP, defaultPalette)
			gpu.Write(addr.TileMap0, tt.tileNumber)

			gpu.Write(tt.expectedTileAddr, 0xAA)
			gpu.Write(tt.expectedTileAddr+1, 0xBB)

			gpu.drawScanline(0)

			fb := gpu.GetFrameBuffer()
			expectedColors := []uint32{
				uint32(BlackColor),    // low 1, high 1 → color 3
				uint32(WhiteColor),    // 0, 0 → color 0
				uint32(BlackColor),    // 1, 1 → color 3
				uint32(DarkGreyColor), // 0, 1 → color 2
				uint32(BlackColor),
				uint32(WhiteColor),
				uint32(BlackColor),
				uint32(DarkGreyColor),
			}

			for i := 0; i < 8; i++ {
				pixel := fb.GetPixel(uint(i), 0)
				assert.Equal(t, expectedColors[i], pixel,
					"Pixel %d for tile %02X at address %04X", i, tt.tileNumber, tt.expectedTileAddr)
			}
		})
	}
}

func TestGPUUnsignedTileAddressing(t *testing.T) {
	tests := []struct {
		name             string
		tileNumber       byte
		expectedTileAddr uint16
	}{
		{"Tile 0 (0x00)", 0x00, 0x8000},
		{"Tile 1 (0x01)", 0x01, 0x8010},
		{"Tile 127 (0x7F)", 0x7F, 0x87F0},
		{"Tile 128 (0x80)", 0x80, 0x8800},
		{"Tile 255 (0xFF)", 0xFF, 0x8FF0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gpu, _ := newTestGpu(false)

			gpu.Write(addr.LCDC, 0x91) // LCD on, BG on, unsigned tiles
			gpu.Write(addr.BGP, defaultPalette)
			gpu.Write(addr.TileMap0, tt.tileNumber)

			gpu.Write(tt.expectedTileAddr, 0xFF)
			gpu.Write(tt.expectedTileAddr+1, 0x00)

			gpu.drawScanline(0)

			fb := gpu.GetFrameBuffer()
			for i := 0; i < 8; i++ {
				pixel := fb.GetPixel(uint(i), 0)
				assert.Equal(t, uint32(LightGreyColor), pixel,
					"Pixel %d for tile %02X at address %04X", i, tt.tileNumber, tt.expectedTileAddr)
			}
		})
	}
}
