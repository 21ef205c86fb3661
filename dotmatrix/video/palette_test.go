package video

import (
	"testing"
)

func TestPaletteMapping(t *testing.T) {
	tests := []struct {
		name     string
		palette  byte
		colorVal int
		expected GBColor
	}{
		{"Default palette 0xE4, color 0", 0xE4, 0, WhiteColor},     // bits 1,0 = 00 → shade 0 → white
		{"Default palette 0xE4, color 1", 0xE4, 1, LightGreyColor}, // bits 3,2 = 01 → shade 1 → light grey
		{"Default palette 0xE4, color 2", 0xE4, 2, DarkGreyColor},  // bits 5,4 = 10 → shade 2 → dark grey
		{"Default palette 0xE4, color 3", 0xE4, 3, BlackColor},     // bits 7,6 = 11 → shade 3 → black
		{"Custom palette 0x1B, color 0", 0x1B, 0, BlackColor},      // bits 1,0 = 11 → shade 3 → black
		{"Custom palette 0x1B, color 1", 0x1B, 1, DarkGreyColor},   // bits 3,2 = 10 → shade 2 → dark grey
		{"Custom palette 0x1B, color 2", 0x1B, 2, LightGreyColor},  // bits 5,4 = 01 → shade 1 → light grey
		{"Custom palette 0x1B, color 3", 0x1B, 3, WhiteColor},      // bits 7,6 = 00 → shade 0 → white
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := monoPaletteShade(tt.palette, tt.colorVal)

			if result != tt.expected {
				t.Errorf("Palette %02X, color %d: expected %08X, got %08X",
					tt.palette, tt.colorVal, tt.expected, result)
			}
		})
	}
}

func TestTilePixelDecoding(t *testing.T) {
	tests := []struct {
		name     string
		low      byte
		high     byte
		pixelX   int
		expected int
	}{
		{"Both bits set", 0xFF, 0xFF, 0, 3},     // bit 7 in both planes = color 3
		{"Low bit only", 0xFF, 0x00, 0, 1},      // bit 7 in low plane only = color 1
		{"High bit only", 0x00, 0xFF, 0, 2},     // bit 7 in high plane only = color 2
		{"No bits set", 0x00, 0x00, 0, 0},       // no bits = color 0
		{"Checkered - pos 0", 0xAA, 0x00, 0, 1}, // 0xAA = 10101010, bit 7 = 1
		{"Checkered - pos 1", 0xAA, 0x00, 1, 0}, // bit 6 = 0
		{"Checkered - pos 2", 0xAA, 0x00, 2, 1}, // bit 5 = 1
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := TileRow{Low: tt.low, High: tt.high}
			pixel := row.GetPixel(tt.pixelX)

			if pixel != tt.expected {
				t.Errorf("Low=%02X, High=%02X, pixel %d: expected color %d, got %d",
					tt.low, tt.high, tt.pixelX, tt.expected, pixel)
			}
		})
	}
}

func TestTilePixelFlippedDecoding(t *testing.T) {
	// flipped reads mirror the row: pixel 0 comes from bit 0
	row := TileRow{Low: 0x80, High: 0x01}

	if got := row.GetPixel(0); got != 1 {
		t.Errorf("GetPixel(0): expected 1, got %d", got)
	}
	if got := row.GetPixelFlipped(0); got != 2 {
		t.Errorf("GetPixelFlipped(0): expected 2, got %d", got)
	}
	if got := row.GetPixelFlipped(7); got != 1 {
		t.Errorf("GetPixelFlipped(7): expected 1, got %d", got)
	}
}
