// Package headless runs the machine with no display attached, for batch
// runs and automated testing. It counts frames, optionally saves PNG
// snapshots along the way, and signals quit once the frame budget is spent.
package headless

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/backend"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/debug"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/action"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/event"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/video"
)

// progressLogInterval is how often, in frames, a progress line is logged.
const progressLogInterval = 10

// SnapshotConfig controls periodic frame captures during a run.
type SnapshotConfig struct {
	Enabled   bool
	Interval  int // save every N frames
	Directory string
	ROMName   string // basename for the capture files
}

type Backend struct {
	config    backend.BackendConfig
	snapshots SnapshotConfig
	frames    int
	budget    int
}

func New(maxFrames int, snapshotConfig SnapshotConfig) *Backend {
	return &Backend{
		budget:    maxFrames,
		snapshots: snapshotConfig,
	}
}

func (h *Backend) Init(config backend.BackendConfig) error {
	h.config = config

	if config.TestPattern {
		slog.Info("Headless test pattern mode - nothing to render, exiting")
		return nil
	}

	slog.Info("Running headless mode",
		"frames", h.budget,
		"snapshot_interval", h.snapshots.Interval,
		"snapshot_dir", h.snapshots.Directory)
	return nil
}

// Update counts the frame, captures snapshots on the configured interval and
// reports quit once the budget is reached.
func (h *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	if h.config.TestPattern {
		return quitEvent(), nil
	}

	h.frames++

	onInterval := h.snapshots.Enabled && h.frames%h.snapshots.Interval == 0
	if onInterval {
		h.capture(frame)
	}
	if h.frames%progressLogInterval == 0 {
		slog.Info("Frame progress", "completed", h.frames, "total", h.budget)
	}
	if h.frames < h.budget {
		return nil, nil
	}

	// Capture the last frame unless the interval just did.
	if h.snapshots.Enabled && !onInterval {
		h.capture(frame)
	}
	if h.snapshots.Enabled {
		slog.Info("Headless execution completed", "frames", h.budget, "png_snapshots_saved_to", h.snapshots.Directory)
	} else {
		slog.Info("Headless execution completed", "frames", h.budget)
	}
	return quitEvent(), nil
}

func (h *Backend) Cleanup() error {
	return nil
}

func quitEvent() []backend.InputEvent {
	return []backend.InputEvent{{Action: action.EmulatorQuit, Type: event.Press}}
}

func (h *Backend) capture(frame *video.FrameBuffer) {
	name := fmt.Sprintf("%s_frame_%d", h.snapshots.ROMName, h.frames)
	if err := debug.SaveFramePNGToDir(frame, name, h.snapshots.Directory); err != nil {
		slog.Error("Failed to save PNG snapshot", "frame", h.frames, "error", err)
	}
}

// CreateSnapshotConfig builds a snapshot configuration from command line
// values. A zero interval disables captures; an empty directory gets a
// temporary one.
func CreateSnapshotConfig(interval int, directory, romPath string) (SnapshotConfig, error) {
	if interval <= 0 {
		return SnapshotConfig{}, nil
	}

	dir, err := ensureDir(directory)
	if err != nil {
		return SnapshotConfig{}, err
	}

	base := filepath.Base(romPath)
	return SnapshotConfig{
		Enabled:   true,
		Interval:  interval,
		Directory: dir,
		ROMName:   strings.TrimSuffix(base, filepath.Ext(base)),
	}, nil
}

func ensureDir(directory string) (string, error) {
	if directory == "" {
		dir, err := os.MkdirTemp("", "dotmatrix-snapshots-*")
		if err != nil {
			return "", fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		return dir, nil
	}
	if err := os.MkdirAll(directory, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return directory, nil
}
