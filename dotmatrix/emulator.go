// Package dotmatrix assembles the Game Boy machine out of its parts and
// drives it one video frame at a time. Backends under backend/ present the
// frames; this package owns everything behind the screen.
package dotmatrix

import (
	"github.com/dmgcore/go-dotmatrix/dotmatrix/audio"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/debug"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/action"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/timing"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/video"
)

// Emulator is what a run loop needs from a frame source: step it, read the
// frame, feed it input. The real machine and the test pattern generator both
// implement it.
type Emulator interface {
	RunUntilFrame() error
	GetCurrentFrame() *video.FrameBuffer
	HandleAction(act action.Action, pressed bool)
	ExtractDebugData() *debug.Data
	SetFrameLimiter(limiter timing.Limiter)
	ResetFrameTiming()
	GetAudioProvider() audio.Provider
}

var _ Emulator = (*DMG)(nil)
