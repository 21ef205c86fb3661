package video

// Framebuffer dimensions of the visible screen area.
const (
	FramebufferWidth  = 160
	FramebufferHeight = 144
)

// GBColor is a pixel packed as 0xRRGGBBAA.
type GBColor uint32

const (
	WhiteColor     GBColor = 0xFFFFFFFF
	LightGreyColor GBColor = 0x989898FF
	DarkGreyColor  GBColor = 0x4C4C4CFF
	BlackColor     GBColor = 0x000000FF
)

// ByteToColor maps a monochrome shade (0-3, lightest to darkest) to its
// display color.
func ByteToColor(shade byte) GBColor {
	switch shade & 0x03 {
	case 0:
		return WhiteColor
	case 1:
		return LightGreyColor
	case 2:
		return DarkGreyColor
	default:
		return BlackColor
	}
}

// FrameBuffer holds one visible frame, one packed color per pixel.
type FrameBuffer struct {
	buffer [FramebufferWidth * FramebufferHeight]uint32
}

// NewFrameBuffer creates a framebuffer cleared to white, the color of an
// unpowered panel.
func NewFrameBuffer() *FrameBuffer {
	fb := &FrameBuffer{}
	fb.Clear(WhiteColor)
	return fb
}

func (fb *FrameBuffer) GetPixel(x, y uint) uint32 {
	return fb.buffer[y*FramebufferWidth+x]
}

func (fb *FrameBuffer) SetPixel(x, y uint, color GBColor) {
	fb.buffer[y*FramebufferWidth+x] = uint32(color)
}

// Clear fills the whole frame with a single color.
func (fb *FrameBuffer) Clear(color GBColor) {
	for i := range fb.buffer {
		fb.buffer[i] = uint32(color)
	}
}

// ToSlice exposes the raw pixel data, row-major from the top-left corner.
func (fb *FrameBuffer) ToSlice() []uint32 {
	return fb.buffer[:]
}

// ToGrayscale renders the frame as one 8-bit gray value per pixel, row-major.
// Used by the golden-image test harnesses, which hash this form.
func (fb *FrameBuffer) ToGrayscale() []byte {
	gray := make([]byte, len(fb.buffer))
	for i, pixel := range fb.buffer {
		switch GBColor(pixel) {
		case WhiteColor:
			gray[i] = 255
		case LightGreyColor:
			gray[i] = 170
		case DarkGreyColor:
			gray[i] = 85
		default:
			gray[i] = 0
		}
	}
	return gray
}
