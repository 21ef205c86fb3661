package debug

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/display"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/video"
)

// TakeSnapshot saves the current frame to the working directory, the handler
// behind the snapshot key in the backends.
func TakeSnapshot(frame *video.FrameBuffer, isTestPattern bool, testPatternType int) {
	if frame == nil {
		slog.Warn("No frame data available for snapshot")
		return
	}

	baseName := "dotmatrix_snapshot"
	if isTestPattern {
		patternNames := [...]string{"checkerboard", "gradient", "stripes", "diagonal"}
		baseName += "_" + patternNames[testPatternType]
	}

	if err := SaveFramePNGToDir(frame, baseName, ""); err != nil {
		slog.Error("Failed to save snapshot", "error", err)
	}
}

// SaveFramePNGToDir writes the frame as a timestamped PNG into the given
// directory, or the working directory when none is given.
func SaveFramePNGToDir(frame *video.FrameBuffer, baseName, directory string) error {
	img := image.NewRGBA(image.Rect(0, 0, video.FramebufferWidth, video.FramebufferHeight))
	for i, pixel := range frame.ToSlice() {
		r, g, b, a := gbPixelToRGBA(pixel)
		idx := i * display.RGBABytesPerPixel
		img.Pix[idx] = byte(r)
		img.Pix[idx+1] = byte(g)
		img.Pix[idx+2] = byte(b)
		img.Pix[idx+3] = byte(a)
	}

	if directory == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %v", err)
		}
		directory = cwd
	}

	name := fmt.Sprintf("%s_%s.png", baseName, time.Now().Format("20060102_150405"))
	path := filepath.Join(directory, name)
	if err := writePNG(path, img); err != nil {
		return err
	}

	slog.Info("Snapshot saved", "path", path, "size", fmt.Sprintf("%dx%d", video.FramebufferWidth, video.FramebufferHeight), "format", "PNG")
	return nil
}

// SaveFrameGrayPNG writes the frame as an 8-bit grayscale PNG at the exact
// path given. The pixel bytes match FrameBuffer.ToGrayscale, so golden-image
// tests can compare files against hashed frames directly.
func SaveFrameGrayPNG(frame *video.FrameBuffer, path string) error {
	img := &image.Gray{
		Pix:    frame.ToGrayscale(),
		Stride: video.FramebufferWidth,
		Rect:   image.Rect(0, 0, video.FramebufferWidth, video.FramebufferHeight),
	}
	return writePNG(path, img)
}

func writePNG(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %v", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %v", err)
	}
	return nil
}

var pixelGrays = map[uint32]uint32{
	uint32(video.WhiteColor):     display.GrayscaleWhite,
	uint32(video.LightGreyColor): display.GrayscaleLightGray,
	uint32(video.DarkGreyColor):  display.GrayscaleDarkGray,
	uint32(video.BlackColor):     display.GrayscaleBlack,
}

// gbPixelToRGBA maps the four shades to grayscale RGBA. Anything else keeps
// its red channel as the gray level, so malformed frames stay visible.
func gbPixelToRGBA(gbPixel uint32) (r, g, b, a uint32) {
	gray, ok := pixelGrays[gbPixel]
	if !ok {
		gray = (gbPixel >> display.RGBARShift) & display.RGBAColorMask
	}
	return gray, gray, gray, display.FullAlpha
}
