package dotmatrix

import (
	"github.com/dmgcore/go-dotmatrix/dotmatrix/audio"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/debug"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/display"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/action"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/timing"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/video"
)

// patternShade computes the shade at (x, y) for an animation phase.
type patternShade func(x, y, phase int) video.GBColor

// The four test patterns. Checkerboard and gradient ignore the phase;
// stripes and diagonals scroll with it.
var testPatterns = [display.TestPatternCount]patternShade{
	func(x, y, _ int) video.GBColor { // checkerboard
		tx := x / display.TestPatternTileSize
		ty := y / display.TestPatternTileSize
		if (tx+ty)%2 == 0 {
			return video.WhiteColor
		}
		return video.BlackColor
	},
	func(x, _, _ int) video.GBColor { // four-band gradient
		switch x * 4 / video.FramebufferWidth {
		case 0:
			return video.BlackColor
		case 1:
			return video.DarkGreyColor
		case 2:
			return video.LightGreyColor
		default:
			return video.WhiteColor
		}
	},
	func(x, _, phase int) video.GBColor { // scrolling vertical stripes
		band := (x + phase*display.TestPatternStripeSpeed) / display.TestPatternStripeWidth
		if band%2 == 0 {
			return video.WhiteColor
		}
		return video.DarkGreyColor
	},
	func(x, y, phase int) video.GBColor { // scrolling diagonals
		diag := (x + y + phase*display.TestPatternDiagonalSpeed) / display.TestPatternTileSize
		if diag%2 == 0 {
			return video.LightGreyColor
		}
		return video.DarkGreyColor
	},
}

// TestPatternEmulator renders fixed patterns instead of running a machine.
// Useful for checking a backend's pixel path without a ROM.
type TestPatternEmulator struct {
	frameBuffer      *video.FrameBuffer
	patternType      int
	animationCounter int
	limiter          timing.Limiter
}

func NewTestPatternEmulator() Emulator {
	e := &TestPatternEmulator{
		frameBuffer: video.NewFrameBuffer(),
		limiter:     timing.NewNoOpLimiter(),
	}
	e.renderPattern()
	return e
}

func (e *TestPatternEmulator) RunUntilFrame() error {
	e.animationCounter++
	if e.animationCounter%display.TestPatternAnimationFrames == 0 {
		e.renderPattern()
	}
	e.limiter.WaitForNextFrame()
	return nil
}

func (e *TestPatternEmulator) GetCurrentFrame() *video.FrameBuffer {
	return e.frameBuffer
}

func (e *TestPatternEmulator) HandleAction(act action.Action, pressed bool) {
	if act == action.EmulatorTestPatternCycle && pressed {
		e.CycleTestPattern()
	}
}

func (e *TestPatternEmulator) ExtractDebugData() *debug.Data {
	return &debug.Data{
		DebuggerState: debug.DebuggerRunning,
	}
}

func (e *TestPatternEmulator) CycleTestPattern() {
	e.patternType = (e.patternType + 1) % display.TestPatternCount
	e.renderPattern()
}

func (e *TestPatternEmulator) renderPattern() {
	shade := testPatterns[e.patternType]
	phase := e.animationCounter / display.TestPatternAnimationFrames
	for y := 0; y < video.FramebufferHeight; y++ {
		for x := 0; x < video.FramebufferWidth; x++ {
			e.frameBuffer.SetPixel(uint(x), uint(y), shade(x, y, phase))
		}
	}
}

func (e *TestPatternEmulator) SetFrameLimiter(limiter timing.Limiter) {
	if limiter == nil {
		limiter = timing.NewNoOpLimiter()
	}
	e.limiter = limiter
}

func (e *TestPatternEmulator) ResetFrameTiming() {
	e.limiter.Reset()
}

func (e *TestPatternEmulator) GetAudioProvider() audio.Provider {
	return nil
}

var _ Emulator = (*TestPatternEmulator)(nil)
