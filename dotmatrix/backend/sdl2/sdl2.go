//go:build sdl2

// Package sdl2 renders into a native window through the SDL2 bindings.
// Building it needs the SDL2 development libraries; default builds get the
// stub in stub.go instead (see the sdl2 build tag).
package sdl2

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/backend"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/debug"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/display"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/action"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/event"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/video"
)

// Backend renders frames into an SDL2 window and reports keyboard input as
// logical events.
type Backend struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	running  bool
	config   backend.BackendConfig

	eventQueue    []backend.InputEvent
	debugProvider backend.DebugDataProvider
	debugWindow   *DebugWindow

	// Scratch pixel buffer reused across frames.
	pixels []byte

	// Last rendered frame, kept for snapshots.
	currentFrame *video.FrameBuffer
}

func New() *Backend {
	return &Backend{
		debugWindow: NewDebugWindow(),
	}
}

func (s *Backend) Init(config backend.BackendConfig) error {
	s.config = config
	s.debugProvider = config.DebugProvider

	scale := config.Scale
	if scale <= 0 {
		scale = display.DefaultPixelScale
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("failed to initialize SDL2: %v", err)
	}

	if err := s.createVideo(config.Title, scale); err != nil {
		s.destroyVideo()
		sdl.Quit()
		return err
	}

	s.pixels = make([]byte, video.FramebufferWidth*video.FramebufferHeight*display.RGBABytesPerPixel)
	s.running = true

	if config.ShowDebug {
		if err := s.debugWindow.Init(); err != nil {
			slog.Warn("Failed to initialize debug window", "error", err)
		} else {
			s.debugWindow.SetVisible(true)
		}
	}

	slog.Info("SDL2 backend initialized", "testPattern", config.TestPattern)
	return nil
}

// createVideo builds the window, renderer and streaming texture chain.
func (s *Backend) createVideo(title string, scale int) error {
	var err error

	s.window, err = sdl.CreateWindow(title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(video.FramebufferWidth*scale), int32(video.FramebufferHeight*scale),
		sdl.WINDOW_SHOWN)
	if err != nil {
		return fmt.Errorf("failed to create window: %v", err)
	}

	s.renderer, err = sdl.CreateRenderer(s.window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %v", err)
	}

	s.texture, err = s.renderer.CreateTexture(sdl.PIXELFORMAT_RGBA8888,
		sdl.TEXTUREACCESS_STREAMING, video.FramebufferWidth, video.FramebufferHeight)
	if err != nil {
		return fmt.Errorf("failed to create texture: %v", err)
	}
	return nil
}

// destroyVideo tears down whatever createVideo managed to build, so it
// doubles as the unwind path for a failed Init. Fields are cleared to keep
// a later Cleanup from destroying them twice.
func (s *Backend) destroyVideo() {
	if s.texture != nil {
		s.texture.Destroy()
		s.texture = nil
	}
	if s.renderer != nil {
		s.renderer.Destroy()
		s.renderer = nil
	}
	if s.window != nil {
		s.window.Destroy()
		s.window = nil
	}
}

// Update renders the frame and returns the input events observed since the
// previous call.
func (s *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		s.handleEvent(ev)
	}

	events := s.eventQueue
	s.eventQueue = nil

	if !s.running {
		return events, nil
	}

	s.currentFrame = frame
	s.renderFrame(frame)

	if s.debugWindow.IsVisible() && s.debugProvider != nil {
		if data := s.debugProvider.ExtractDebugData(); data != nil {
			s.debugWindow.UpdateData(data.OAM, data.VRAM, data.Palettes)
		}
		s.debugWindow.Render()
	}

	return events, nil
}

func (s *Backend) Cleanup() error {
	slog.Info("Cleaning up SDL2 backend")

	if s.debugWindow != nil {
		s.debugWindow.Cleanup()
	}
	s.destroyVideo()
	sdl.Quit()

	return nil
}

// HandleAction processes the controls that only concern this backend.
func (s *Backend) HandleAction(act action.Action) {
	switch act {
	case action.EmulatorSnapshot:
		debug.TakeSnapshot(s.currentFrame, s.config.TestPattern, 0)
	case action.EmulatorDebugToggle:
		s.toggleDebugWindow()
	case action.EmulatorDebugUpdate:
		s.debugWindow.ForceRefresh()
	default:
		slog.Debug("Action not handled by SDL2 backend", "action", action.GetInfo(act).Name)
	}
}

func (s *Backend) handleEvent(ev sdl.Event) {
	switch e := ev.(type) {
	case *sdl.QuitEvent:
		s.running = false
		s.eventQueue = append(s.eventQueue, backend.InputEvent{Action: action.EmulatorQuit, Type: event.Press})

	case *sdl.KeyboardEvent:
		switch e.Type {
		case sdl.KEYDOWN:
			s.handleKeyDown(e.Keysym.Sym, e.Repeat)
		case sdl.KEYUP:
			s.handleKeyUp(e.Keysym.Sym)
		}
	}
}

// sdlKeyNameMap translates SDL keycodes into the names the shared binding
// table uses.
var sdlKeyNameMap = map[sdl.Keycode]string{
	sdl.K_z:          "z",
	sdl.K_x:          "x",
	sdl.K_RETURN:     "Enter",
	sdl.K_RSHIFT:     "Shift",
	sdl.K_LSHIFT:     "Shift",
	sdl.K_UP:         "Up",
	sdl.K_DOWN:       "Down",
	sdl.K_LEFT:       "Left",
	sdl.K_RIGHT:      "Right",
	sdl.K_w:          "w",
	sdl.K_s:          "s",
	sdl.K_a:          "a",
	sdl.K_d:          "d",
	sdl.K_SPACE:      "Space",
	sdl.K_p:          "p",
	sdl.K_o:          "o",
	sdl.K_f:          "f",
	sdl.K_i:          "i",
	sdl.K_n:          "n",
	sdl.K_q:          "q",
	sdl.K_ESCAPE:     "Escape",
	sdl.K_F1:         "F1",
	sdl.K_F2:         "F2",
	sdl.K_F3:         "F3",
	sdl.K_F4:         "F4",
	sdl.K_F5:         "F5",
	sdl.K_F9:         "F9",
	sdl.K_F10:        "F10",
	sdl.K_F11:        "F11",
	sdl.K_F12:        "F12",
	sdl.K_1:          "1",
	sdl.K_2:          "2",
	sdl.K_3:          "3",
	sdl.K_4:          "4",
	sdl.K_PLUS:       "+",
	sdl.K_EQUALS:     "=",
	sdl.K_MINUS:      "-",
	sdl.K_UNDERSCORE: "_",
}

func buildKeyMapping() map[sdl.Keycode]action.Action {
	mapping := make(map[sdl.Keycode]action.Action)
	for key, keyName := range sdlKeyNameMap {
		if act, ok := input.GetDefaultMapping(keyName); ok {
			mapping[key] = act
		}
	}
	return mapping
}

var keyMapping = buildKeyMapping()

func (s *Backend) handleKeyDown(key sdl.Keycode, repeat uint8) {
	// SDL delivers holds as repeats; the pad wants only the press edge.
	if repeat != 0 {
		return
	}

	act, exists := keyMapping[key]
	if !exists {
		return
	}

	if act == action.EmulatorQuit {
		s.running = false
	}
	s.eventQueue = append(s.eventQueue, backend.InputEvent{Action: act, Type: event.Press})
}

func (s *Backend) handleKeyUp(key sdl.Keycode) {
	act, exists := keyMapping[key]
	if !exists {
		return
	}

	// Only the pad cares about releases; control actions are one-shot.
	if action.GetInfo(act).Category == action.CategoryGameInput {
		s.eventQueue = append(s.eventQueue, backend.InputEvent{Action: act, Type: event.Release})
	}
}

func (s *Backend) renderFrame(frame *video.FrameBuffer) {
	frameData := frame.ToSlice()

	for i, gbPixel := range frameData {
		r, g, b, a := gbColorToRGBA(gbPixel)

		// ABGR byte order for little-endian RGBA8888.
		dstIdx := i * display.RGBABytesPerPixel
		s.pixels[dstIdx] = a
		s.pixels[dstIdx+1] = b
		s.pixels[dstIdx+2] = g
		s.pixels[dstIdx+3] = r
	}

	s.texture.Update(nil, unsafe.Pointer(&s.pixels[0]), video.FramebufferWidth*display.RGBABytesPerPixel)

	s.renderer.SetDrawColor(display.GrayscaleBlack, display.GrayscaleBlack, display.GrayscaleBlack, display.FullAlpha)
	s.renderer.Clear()
	s.renderer.Copy(s.texture, nil, nil)
	s.renderer.Present()
}

var shadeGrays = map[uint32]uint8{
	uint32(video.WhiteColor):     display.GrayscaleWhite,
	uint32(video.LightGreyColor): display.GrayscaleLightGray,
	uint32(video.DarkGreyColor):  display.GrayscaleDarkGray,
	uint32(video.BlackColor):     display.GrayscaleBlack,
}

// gbColorToRGBA expands a packed display pixel into RGBA components. The
// four monochrome shades remap to the display grays; anything else (color
// mode palettes, test pattern gradients) decodes channel by channel.
func gbColorToRGBA(gbColor uint32) (r, g, b, a uint8) {
	if gray, ok := shadeGrays[gbColor]; ok {
		return gray, gray, gray, display.FullAlpha
	}

	r = uint8((gbColor >> display.RGBARShift) & display.RGBAColorMask)
	g = uint8((gbColor >> display.RGBAGShift) & display.RGBAColorMask)
	b = uint8((gbColor >> display.RGBABShift) & display.RGBAColorMask)
	return r, g, b, display.FullAlpha
}

func (s *Backend) toggleDebugWindow() {
	if !s.debugWindow.IsInitialized() {
		slog.Debug("Initializing debug window")
		if err := s.debugWindow.Init(); err != nil {
			slog.Warn("Failed to initialize debug window", "error", err)
			return
		}
	}

	wasVisible := s.debugWindow.IsVisible()
	s.debugWindow.SetVisible(!wasVisible)
	slog.Debug("Debug window visibility changed", "visible", !wasVisible)
}
