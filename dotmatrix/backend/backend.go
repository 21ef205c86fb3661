// Package backend defines the presentation-side contract: a backend renders
// completed frames and reports input as logical events. Backends never reach
// into the machine; the run loop in cmd dispatches their events.
package backend

import (
	"github.com/dmgcore/go-dotmatrix/dotmatrix/debug"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/action"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/event"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/video"
)

// InputEvent is one logical input edge observed by a backend.
type InputEvent struct {
	Action action.Action
	Type   event.Type
}

// Backend is a complete presentation platform: a window, a terminal, or
// nothing at all for batch runs.
type Backend interface {
	// Init configures the backend. Required before the first Update.
	Init(config BackendConfig) error

	// Update renders the frame and returns the input events collected since
	// the previous call. A nil slice means no input.
	Update(frame *video.FrameBuffer) ([]InputEvent, error)

	// Cleanup releases platform resources.
	Cleanup() error
}

// DebugDataProvider is implemented by emulators that can hand backends a
// machine-state snapshot for their debug views.
type DebugDataProvider interface {
	ExtractDebugData() *debug.Data
}

// BackendConfig carries presentation options inward. Backends ignore fields
// they have no use for.
type BackendConfig struct {
	Title         string
	Scale         int
	ShowDebug     bool
	TestPattern   bool
	DebugProvider DebugDataProvider
}
