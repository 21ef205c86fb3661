package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/dmgcore/go-dotmatrix/dotmatrix"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/audio"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/backend"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/backend/headless"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/backend/sdl2"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/backend/terminal"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/display"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/action"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/event"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "dotmatrix"
	app.Description = "A Game Boy emulator"
	app.Usage = "dotmatrix [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "backend",
			Usage: "Display backend to use: terminal or sdl2",
			Value: "terminal",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a graphical interface",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.BoolFlag{
			Name:  "test-pattern",
			Usage: "Display a test pattern instead of emulation (for debugging display)",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.StringFlag{
			Name:  "bootrom",
			Usage: "Path to a boot ROM image to run before the cartridge",
		},
		cli.IntFlag{
			Name:  "scale",
			Usage: "Window scale factor (sdl2 backend)",
			Value: display.DefaultPixelScale,
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Open the debug view on startup",
		},
		cli.BoolFlag{
			Name:  "serial-stdout",
			Usage: "Echo serial port output to stdout (test ROMs report through it)",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "Log verbosity: debug, info, warn or error",
			Value: "info",
		},
	}
	app.Action = runEmulator

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	level, err := parseLogLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	// Test pattern mode - no ROM needed
	if c.Bool("test-pattern") {
		slog.Info("Running in test pattern mode")
		emu := dotmatrix.NewTestPatternEmulator()
		var b backend.Backend
		if c.Bool("headless") {
			b = headless.New(c.Int("frames"), headless.SnapshotConfig{})
		} else {
			var err error
			b, err = selectBackend(c)
			if err != nil {
				return err
			}
			// Patterns only need steady pacing, not the drift-compensated
			// limiter the machine uses.
			emu.SetFrameLimiter(timing.NewTickerLimiter())
		}
		return runLoop(emu, b, backend.BackendConfig{
			Title:         "Test Pattern",
			Scale:         c.Int("scale"),
			ShowDebug:     c.Bool("debug"),
			TestPattern:   true,
			DebugProvider: emu,
		})
	}

	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	var opts []dotmatrix.Option
	if bootPath := c.String("bootrom"); bootPath != "" {
		boot, err := os.ReadFile(bootPath)
		if err != nil {
			return fmt.Errorf("reading boot ROM: %w", err)
		}
		opts = append(opts, dotmatrix.WithBootROM(boot))
	}
	if c.Bool("serial-stdout") {
		opts = append(opts, dotmatrix.WithSerialEcho(os.Stdout))
	}

	emu, err := dotmatrix.NewWithFile(romPath, opts...)
	if err != nil {
		return err
	}

	savePath := strings.TrimSuffix(romPath, filepath.Ext(romPath)) + ".sav"
	if err := emu.LoadSave(savePath); err != nil {
		slog.Warn("Could not load save file", "path", savePath, "error", err)
	}
	defer func() {
		emu.FlushSerial()
		if err := emu.WriteSave(savePath); err != nil {
			slog.Error("Failed to write save file", "path", savePath, "error", err)
		}
	}()

	title := emu.Title()
	if title == "" {
		title = filepath.Base(romPath)
	}

	var b backend.Backend
	if c.Bool("headless") {
		frames := c.Int("frames")
		if frames <= 0 {
			return errors.New("headless mode requires --frames option with a positive value")
		}
		snapCfg, err := headless.CreateSnapshotConfig(c.Int("snapshot-interval"), c.String("snapshot-dir"), romPath)
		if err != nil {
			return err
		}
		b = headless.New(frames, snapCfg)
	} else {
		b, err = selectBackend(c)
		if err != nil {
			return err
		}
		emu.SetFrameLimiter(timing.NewAdaptiveLimiter())
	}

	return runLoop(emu, b, backend.BackendConfig{
		Title:         title,
		Scale:         c.Int("scale"),
		ShowDebug:     c.Bool("debug"),
		DebugProvider: emu,
	})
}

func selectBackend(c *cli.Context) (backend.Backend, error) {
	switch name := c.String("backend"); name {
	case "terminal":
		return terminal.New(), nil
	case "sdl2":
		return sdl2.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (use terminal or sdl2)", name)
	}
}

func parseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (use debug, info, warn or error)", name)
	}
}

// runLoop drives the machine one frame at a time and dispatches the backend's
// input events: pad edges go to the machine, presentation controls go back to
// the backend, audio controls go to the sound unit.
func runLoop(emu dotmatrix.Emulator, b backend.Backend, config backend.BackendConfig) error {
	if err := b.Init(config); err != nil {
		return err
	}
	defer b.Cleanup()

	handler := input.NewHandler()
	paused := false

	for {
		if paused {
			// Keep the UI responsive at roughly frame rate without
			// advancing the machine.
			time.Sleep(timing.FrameDuration())
		} else {
			if err := emu.RunUntilFrame(); err != nil {
				return err
			}
		}

		events, err := b.Update(emu.GetCurrentFrame())
		if err != nil {
			return err
		}

		for _, evt := range events {
			if !handler.ProcessEvent(evt) {
				continue
			}

			switch evt.Action {
			case action.EmulatorQuit:
				return nil

			case action.EmulatorPauseToggle:
				if evt.Type != event.Press {
					continue
				}
				paused = !paused
				if paused {
					slog.Info("Paused")
				} else {
					emu.ResetFrameTiming()
					slog.Info("Resumed")
				}

			case action.EmulatorStepFrame:
				if paused && evt.Type == event.Press {
					if err := emu.RunUntilFrame(); err != nil {
						return err
					}
				}

			case action.EmulatorStepInstruction:
				if paused && evt.Type == event.Press {
					if stepper, ok := emu.(interface{ StepInstruction() error }); ok {
						if err := stepper.StepInstruction(); err != nil {
							return err
						}
					}
				}

			default:
				dispatchAction(emu, b, evt)
			}
		}
	}
}

// dispatchAction routes everything that is not run-loop state. Pad input is
// forwarded on both edges so held buttons register; one-shot controls act on
// the press edge only.
func dispatchAction(emu dotmatrix.Emulator, b backend.Backend, evt backend.InputEvent) {
	if action.GetInfo(evt.Action).Category == action.CategoryGameInput {
		emu.HandleAction(evt.Action, evt.Type != event.Release)
		return
	}

	if evt.Type != event.Press {
		return
	}

	if provider := emu.GetAudioProvider(); provider != nil {
		applyAudioAction(provider, evt.Action)
	}

	// Snapshots, debug views, pattern cycling and log filtering are
	// presentation concerns; backends that support them expose HandleAction.
	if h, ok := b.(interface{ HandleAction(action.Action) }); ok {
		h.HandleAction(evt.Action)
	}

	if evt.Action == action.EmulatorTestPatternCycle {
		emu.HandleAction(evt.Action, true)
	}
}

func applyAudioAction(provider audio.Provider, act action.Action) {
	switch act {
	case action.AudioToggleChannel1:
		provider.ToggleChannel(1)
	case action.AudioToggleChannel2:
		provider.ToggleChannel(2)
	case action.AudioToggleChannel3:
		provider.ToggleChannel(3)
	case action.AudioToggleChannel4:
		provider.ToggleChannel(4)
	case action.AudioSoloChannel1:
		provider.SoloChannel(1)
	case action.AudioSoloChannel2:
		provider.SoloChannel(2)
	case action.AudioSoloChannel3:
		provider.SoloChannel(3)
	case action.AudioSoloChannel4:
		provider.SoloChannel(4)
	case action.AudioShowStatus:
		ch1, ch2, ch3, ch4 := provider.GetChannelStatus()
		slog.Info("Audio channel status", "ch1", ch1, "ch2", ch2, "ch3", ch3, "ch4", ch4)
	}
}
