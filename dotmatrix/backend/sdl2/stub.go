//go:build !sdl2

package sdl2

import (
	"fmt"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/backend"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/action"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/video"
)

// Backend is the placeholder used when the binary is built without the sdl2
// tag. Every entry point reports that the real backend is unavailable.
type Backend struct{}

func New() *Backend {
	return &Backend{}
}

func (s *Backend) Init(config backend.BackendConfig) error {
	return fmt.Errorf("SDL2 backend not available - build with -tags sdl2 to enable")
}

func (s *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	return nil, fmt.Errorf("SDL2 backend not available")
}

func (s *Backend) Cleanup() error {
	return nil
}

func (s *Backend) HandleAction(act action.Action) {}
