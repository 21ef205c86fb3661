// Package display holds the pixel format and sizing constants shared by the
// framebuffer, the backends and the test patterns.
package display

// RGBA packing used by the framebuffer: one 32-bit value per LCD dot, red in
// the top byte.
const (
	RGBABytesPerPixel = 4
	RGBARShift        = 24
	RGBAGShift        = 16
	RGBABShift        = 8
	RGBAColorMask     = 0xFF
)

// DefaultPixelScale is how many native pixels each LCD dot gets in windowed
// backends.
const DefaultPixelScale = 4

// Test pattern geometry and animation rates, shared by the pattern emulator
// and the backends that cycle patterns locally.
const (
	TestPatternCount           = 4
	TestPatternTileSize        = 8
	TestPatternStripeWidth     = 4
	TestPatternAnimationFrames = 30
	TestPatternStripeSpeed     = 2
	TestPatternDiagonalSpeed   = 4
)

// The four DMG shades as 8-bit grayscale intensities.
const (
	GrayscaleWhite     = 255
	GrayscaleLightGray = 170
	GrayscaleDarkGray  = 85
	GrayscaleBlack     = 0
	FullAlpha          = 255
)
