// Package terminal renders the screen into a tcell terminal using half-block
// characters, two pixels per cell. A side panel shows CPU registers, a
// disassembly window around PC and the recent log tail.
package terminal

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/backend"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/backend/terminal/render"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/debug"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/display"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/action"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/event"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/video"
)

const (
	width  = video.FramebufferWidth
	height = video.FramebufferHeight

	registerHeight = 12
	disasmHeight   = 9
	minTermWidth   = 80
	minTermHeight  = 24
)

// keyTimeout is how long a key counts as held after its last event. Terminals
// only deliver key repeats, so releases have to be inferred from silence.
const keyTimeout = 100 * time.Millisecond

var patternNames = []string{"Checkerboard", "Gradient", "Stripes", "Diagonal"}

// logLevels orders the panel filter from most to least verbose.
var logLevels = []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}

var dpadActions = []action.Action{action.GBDPadUp, action.GBDPadDown, action.GBDPadLeft, action.GBDPadRight}

// Backend renders frames to the terminal and synthesizes press/hold/release
// events from key repeat timing.
type Backend struct {
	screen     tcell.Screen
	running    bool
	logBuffer  *render.LogBuffer
	logLevel   slog.Level
	config     backend.BackendConfig
	eventQueue []backend.InputEvent

	keySeen map[action.Action]time.Time // last event time per key
	held    map[action.Action]bool      // keys held as of the previous frame

	debugProvider backend.DebugDataProvider
	disasmBuf     *debug.DisasmBuffer

	testPatternFrame *video.FrameBuffer
	testPatternType  int
	testFrameCount   int

	// Last rendered frame, kept for snapshots.
	currentFrame *video.FrameBuffer
}

func New() *Backend {
	return &Backend{
		logLevel: slog.LevelInfo,
	}
}

func (t *Backend) Init(config backend.BackendConfig) error {
	t.config = config
	t.debugProvider = config.DebugProvider
	t.eventQueue = make([]backend.InputEvent, 0)
	t.keySeen = make(map[action.Action]time.Time)
	t.held = make(map[action.Action]bool)
	t.disasmBuf = debug.NewDisasmBuffer(disasmHeight)

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create terminal screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal screen: %w", err)
	}
	t.screen = screen
	t.running = true

	// Route logs into the ring buffer so they show in the side panel instead
	// of corrupting the terminal.
	t.logBuffer = render.NewLogBuffer(100)
	slog.SetDefault(slog.New(render.NewLogBufferHandler(t.logBuffer, slog.LevelDebug)))

	if config.TestPattern {
		t.testPatternFrame = video.NewFrameBuffer()
		t.redrawTestPattern()
		slog.Info("Terminal backend initialized in test pattern mode")
	} else {
		slog.Info("Terminal backend initialized")
		if config.ShowDebug {
			slog.Debug("Debug mode enabled")
		}
	}

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	go t.handleSignals()
	return nil
}

// Update renders a frame and returns the input events observed since the
// previous call.
func (t *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	now := time.Now()
	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			t.processKeyEvent(ev, now)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}

	events := t.collectKeyEvents(now)
	events = append(events, t.drainQueue()...)

	if !t.running {
		return events, nil
	}

	if t.config.TestPattern {
		t.testFrameCount++
		if t.testFrameCount%display.TestPatternAnimationFrames == 0 && t.testPatternType >= 2 {
			t.redrawTestPattern()
		}
		frame = t.testPatternFrame
	}

	t.currentFrame = frame
	t.render(frame)
	t.screen.Show()

	return events, nil
}

func (t *Backend) Cleanup() error {
	if t.screen != nil {
		slog.Info("Cleaning up terminal backend")
		t.screen.Fini()
	}
	return nil
}

// collectKeyEvents synthesizes pad events from key timing: a key seen within
// the timeout is held, one past it has been released.
func (t *Backend) collectKeyEvents(now time.Time) []backend.InputEvent {
	var events []backend.InputEvent

	held := make(map[action.Action]bool)
	for act, seen := range t.keySeen {
		if !isGameInput(act) {
			continue
		}
		if now.Sub(seen) >= keyTimeout {
			delete(t.keySeen, act)
			continue
		}
		held[act] = true
		if t.held[act] {
			events = append(events, backend.InputEvent{Action: act, Type: event.Hold})
		} else {
			slog.Debug("Key press", "action", action.GetInfo(act).Name)
			events = append(events, backend.InputEvent{Action: act, Type: event.Press})
		}
	}

	for act := range t.held {
		if !held[act] {
			slog.Debug("Key release", "action", action.GetInfo(act).Name)
			events = append(events, backend.InputEvent{Action: act, Type: event.Release})
		}
	}
	t.held = held

	return events
}

// drainQueue empties the one-shot controls queued by the key handlers.
func (t *Backend) drainQueue() []backend.InputEvent {
	if len(t.eventQueue) == 0 {
		return nil
	}
	for _, evt := range t.eventQueue {
		slog.Debug("UI event", "action", action.GetInfo(evt.Action).Name, "type", evt.Type)
	}
	queued := t.eventQueue
	t.eventQueue = nil
	return queued
}

func isGameInput(act action.Action) bool {
	return action.GetInfo(act).Category == action.CategoryGameInput
}

// HandleAction processes the controls that only concern this backend.
func (t *Backend) HandleAction(act action.Action) {
	switch act {
	case action.EmulatorSnapshot:
		debug.TakeSnapshot(t.currentFrame, t.config.TestPattern, t.testPatternType)
	case action.EmulatorTestPatternCycle:
		if t.config.TestPattern {
			t.testPatternType = (t.testPatternType + 1) % display.TestPatternCount
			t.redrawTestPattern()
			slog.Info("Switched to test pattern", "pattern", patternNames[t.testPatternType])
		}
	case action.EmulatorDebugToggle:
		t.config.ShowDebug = !t.config.ShowDebug
		if t.config.ShowDebug {
			slog.Info("Debug display enabled")
		} else {
			slog.Info("Debug display disabled")
		}
	case action.EmulatorDebugUpdate:
		t.screen.Sync()
	case action.DebugLogLevelIncrease:
		t.changeLogLevel(1)
	case action.DebugLogLevelDecrease:
		t.changeLogLevel(-1)
	case action.AudioToggleChannel1, action.AudioToggleChannel2,
		action.AudioToggleChannel3, action.AudioToggleChannel4,
		action.AudioSoloChannel1, action.AudioSoloChannel2,
		action.AudioSoloChannel3, action.AudioSoloChannel4,
		action.AudioShowStatus:
		slog.Debug("Audio action not supported in terminal backend", "action", act)
	}
}

func (t *Backend) handleSignals() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)

	<-signals
	t.running = false
	t.eventQueue = append(t.eventQueue, backend.InputEvent{Action: action.EmulatorQuit, Type: event.Press})
}

// trackKey records a key event: game inputs go into the held-key table, the
// rest are queued as one-shot presses.
func (t *Backend) trackKey(act action.Action, now time.Time) {
	if !isGameInput(act) {
		t.eventQueue = append(t.eventQueue, backend.InputEvent{Action: act, Type: event.Press})
		return
	}

	// D-pad directions are exclusive, a new direction drops the others.
	if slices.Contains(dpadActions, act) {
		for _, d := range dpadActions {
			delete(t.keySeen, d)
		}
	}
	t.keySeen[act] = now
}

func (t *Backend) processKeyEvent(ev *tcell.EventKey, now time.Time) {
	if act, ok := keyMapping[ev.Key()]; ok {
		if act == action.EmulatorQuit {
			t.running = false
		}
		t.trackKey(act, now)
		return
	}

	if ev.Key() != tcell.KeyRune {
		return
	}
	if act, ok := runeMapping[ev.Rune()]; ok {
		slog.Debug("Key event", "rune", string(ev.Rune()), "action", action.GetInfo(act).Name)
		t.trackKey(act, now)
	}
}

// tcellKeyNameMap translates tcell special keys into the names the shared
// binding table uses.
var tcellKeyNameMap = map[tcell.Key]string{
	tcell.KeyEnter:  "Enter",
	tcell.KeyUp:     "Up",
	tcell.KeyDown:   "Down",
	tcell.KeyLeft:   "Left",
	tcell.KeyRight:  "Right",
	tcell.KeyEscape: "Escape",
	tcell.KeyF1:     "F1",
	tcell.KeyF2:     "F2",
	tcell.KeyF3:     "F3",
	tcell.KeyF4:     "F4",
	tcell.KeyF5:     "F5",
	tcell.KeyF9:     "F9",
	tcell.KeyF10:    "F10",
	tcell.KeyF11:    "F11",
	tcell.KeyF12:    "F12",
}

var tcellRuneNameMap = map[rune]string{
	'z': "z",
	'x': "x",
	'w': "w",
	's': "s",
	'a': "a",
	'd': "d",
	'p': "p",
	'o': "o",
	'f': "f",
	'i': "i",
	'n': "n",
	'q': "q",
	' ': "Space",
	'1': "1",
	'2': "2",
	'3': "3",
	'4': "4",
	'+': "+",
	'=': "=",
	'-': "-",
	'_': "_",
}

func buildKeyMapping() map[tcell.Key]action.Action {
	mapping := make(map[tcell.Key]action.Action)
	for key, keyName := range tcellKeyNameMap {
		if act, ok := input.GetDefaultMapping(keyName); ok {
			mapping[key] = act
		}
	}
	mapping[tcell.KeyCtrlC] = action.EmulatorQuit
	return mapping
}

func buildRuneMapping() map[rune]action.Action {
	mapping := make(map[rune]action.Action)
	for r, keyName := range tcellRuneNameMap {
		if act, ok := input.GetDefaultMapping(keyName); ok {
			mapping[r] = act
		}
	}
	return mapping
}

var keyMapping = buildKeyMapping()

var runeMapping = buildRuneMapping()

// changeLogLevel moves the panel filter one step, +1 toward debug.
func (t *Backend) changeLogLevel(direction int) {
	i := slices.Index(logLevels, t.logLevel) - direction
	if i < 0 || i >= len(logLevels) {
		return
	}
	slog.Info("Log filter changed", "from", t.logLevel, "to", logLevels[i])
	t.logLevel = logLevels[i]
}

func (t *Backend) render(frame *video.FrameBuffer) {
	termWidth, termHeight := t.screen.Size()
	if termWidth < minTermWidth || termHeight < minTermHeight {
		t.screen.Clear()
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
		t.drawText(msg, 0, termHeight/2, termWidth, tcell.StyleDefault.Foreground(tcell.ColorRed))
		return
	}

	t.screen.Clear()

	dividerX := width + 2
	panelX := dividerX + 1
	panelWidth := max(termWidth-panelX, 0)

	t.drawBorders(termWidth, termHeight, dividerX)
	t.drawScreen(frame)

	var debugData *debug.Data
	if t.debugProvider != nil {
		debugData = t.debugProvider.ExtractDebugData()
	}

	logsY := 1
	if t.config.ShowDebug {
		logsY = registerHeight + disasmHeight + 3
	}
	if t.config.ShowDebug && debugData != nil {
		t.drawRegisters(debugData, panelX, 1, panelWidth, termHeight)
		t.drawDisassembly(debugData, panelX, registerHeight+2, panelWidth, termHeight)
	}
	t.drawLogs(panelX, logsY, panelWidth, termHeight)
}

func (t *Backend) drawBorders(termWidth, termHeight, dividerX int) {
	borderStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	titleStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)

	if dividerX < termWidth {
		for y := 0; y < termHeight; y++ {
			t.screen.SetContent(dividerX, y, '│', nil, borderStyle)
		}
	}

	registerEndY := registerHeight + 1
	disasmEndY := registerEndY + disasmHeight + 1

	if t.config.ShowDebug {
		t.drawRule(registerEndY, dividerX, termWidth, termHeight, borderStyle)
		t.drawRule(disasmEndY, dividerX, termWidth, termHeight, borderStyle)
	}

	title := " Game Boy "
	if t.config.TestPattern {
		title = fmt.Sprintf(" Test Pattern: %s ", patternNames[t.testPatternType])
	}
	t.drawText(title, 1, 0, dividerX-1, titleStyle)

	if t.config.ShowDebug {
		titleX := dividerX + 2
		titleWidth := termWidth - titleX
		t.drawText(" CPU Registers ", titleX, 0, titleWidth, titleStyle)
		if registerEndY < termHeight {
			t.drawText(" Disassembly ", titleX, registerEndY, titleWidth, titleStyle)
		}
		if disasmEndY < termHeight {
			logsTitle := fmt.Sprintf(" Logs [%s] (-/+ filter) ", t.logLevel)
			t.drawText(logsTitle, titleX, disasmEndY, titleWidth, titleStyle)
		}
	}

	helpText := " Debug: F10=toggle debug view SPACE=pause/resume N=step F=frame F9=snapshot | Logs: +/- filter "
	if t.config.TestPattern {
		helpText = " Test Pattern Mode: F12=cycle patterns F9=snapshot ESC=exit "
	}
	t.drawText(helpText, 0, termHeight-1, termWidth, borderStyle)
}

// drawRule draws a horizontal separator across the side panel, joined to the
// divider column.
func (t *Backend) drawRule(y, dividerX, termWidth, termHeight int, style tcell.Style) {
	if y >= termHeight {
		return
	}
	for x := dividerX + 1; x < termWidth; x++ {
		t.screen.SetContent(x, y, '─', nil, style)
	}
	t.screen.SetContent(dividerX, y, '├', nil, style)
}

// drawScreen draws the frame two rows of pixels per terminal cell using
// half-block characters.
func (t *Backend) drawScreen(frame *video.FrameBuffer) {
	for row := 0; row < height/2; row++ {
		y := uint(row * 2)
		for x := 0; x < width; x++ {
			top := render.PixelToShade(frame.GetPixel(uint(x), y))
			bottom := render.PixelToShade(frame.GetPixel(uint(x), y+1))

			ch, fg, bg := halfBlockCell(top, bottom)
			t.screen.SetContent(x, row+1, ch, nil, tcell.StyleDefault.Foreground(fg).Background(bg))
		}
	}
}

var shadeColors = [4]tcell.Color{
	tcell.ColorBlack,
	tcell.ColorGray,
	tcell.ColorSilver,
	tcell.ColorWhite,
}

// halfBlockCell picks the character and color pair for a pixel pair. A white
// top half renders as a lower block so the terminal background shows through
// less often.
func halfBlockCell(topShade, bottomShade int) (rune, tcell.Color, tcell.Color) {
	ch := render.GetHalfBlockChar(topShade, bottomShade)
	switch {
	case topShade == bottomShade:
		return ch, shadeColors[topShade], tcell.ColorDefault
	case topShade == 3:
		return ch, shadeColors[bottomShade], shadeColors[topShade]
	default:
		return ch, shadeColors[topShade], shadeColors[bottomShade]
	}
}

// pendingInterruptNames lists the interrupts that are both enabled and
// requested.
func pendingInterruptNames(enable, flags uint8) string {
	pending := enable & flags & 0x1F
	if pending == 0 {
		return "none"
	}

	names := []string{"VBL", "STAT", "TMR", "SER", "JOY"}
	out := ""
	for bit := 0; bit < 5; bit++ {
		if pending&(1<<bit) == 0 {
			continue
		}
		if out != "" {
			out += " "
		}
		out += names[bit]
	}
	return out
}

func (t *Backend) drawRegisters(debugData *debug.Data, startX, startY, width, termHeight int) {
	if debugData.CPU == nil || width <= 0 || startY >= termHeight {
		return
	}

	cpu := debugData.CPU

	statusStr := "RUNNING"
	switch debugData.DebuggerState {
	case debug.DebuggerPaused:
		statusStr = "PAUSED"
	case debug.DebuggerStepInstruction:
		statusStr = "STEP"
	case debug.DebuggerStepFrame:
		statusStr = "FRAME"
	}

	imeStr := "OFF"
	if cpu.IME {
		imeStr = "ON"
	}

	lines := []string{
		fmt.Sprintf("Status: %s", statusStr),
		fmt.Sprintf("A: 0x%02X  F: 0x%02X", cpu.A, cpu.F),
		fmt.Sprintf("B: 0x%02X  C: 0x%02X", cpu.B, cpu.C),
		fmt.Sprintf("D: 0x%02X  E: 0x%02X", cpu.D, cpu.E),
		fmt.Sprintf("H: 0x%02X  L: 0x%02X", cpu.H, cpu.L),
		fmt.Sprintf("SP: 0x%04X  PC: 0x%04X", cpu.SP, cpu.PC),
		fmt.Sprintf("IME: %s  IE: 0x%02X  IF: 0x%02X", imeStr, debugData.InterruptEnable, debugData.InterruptFlags),
		fmt.Sprintf("Pending: %s", pendingInterruptNames(debugData.InterruptEnable, debugData.InterruptFlags)),
		fmt.Sprintf("Cycles: %d", cpu.Cycles),
	}

	if p := debugData.Palettes; p != nil {
		lines = append(lines, fmt.Sprintf("Pal: BGP %02X OBP0 %02X OBP1 %02X", p.BGP.Raw, p.OBP0.Raw, p.OBP1.Raw))
	}
	if a := debugData.Audio; a != nil {
		lines = append(lines, audioStatusLine(a))
	}

	style := tcell.StyleDefault.Foreground(tcell.ColorBlue)
	for i, line := range lines {
		y := startY + i
		if y >= termHeight || y >= startY+registerHeight {
			break
		}
		t.drawText(line, startX, y, width, style)
	}
}

// audioStatusLine condenses the sound state into one panel line: master
// volumes and the note each channel is tuned to.
func audioStatusLine(a *debug.AudioData) string {
	if !a.APUEnabled {
		return "Snd: OFF"
	}
	return fmt.Sprintf("Snd: L%d R%d 1:%s 2:%s 3:%s 4:%s",
		a.MasterVolume.Left, a.MasterVolume.Right,
		a.Channels.Ch1.Note, a.Channels.Ch2.Note,
		a.Channels.Ch3.Note, a.Channels.Ch4.Note)
}

func (t *Backend) drawDisassembly(debugData *debug.Data, startX, startY, width, termHeight int) {
	if debugData.CPU == nil || debugData.Memory == nil {
		return
	}
	if width <= 0 || startY >= termHeight {
		return
	}

	lines := debug.CreateDisassemblyWithBuffer(debugData.Memory, debugData.CPU.PC, disasmHeight, t.disasmBuf)

	style := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	currentStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)

	for i, disasmLine := range lines {
		if i >= disasmHeight || startY+i >= termHeight {
			break
		}

		line := fmt.Sprintf(" 0x%04X: %s", disasmLine.Address, disasmLine.Instruction)
		useStyle := style
		if disasmLine.IsCurrent {
			line = "→" + line[1:]
			useStyle = currentStyle
		}

		t.drawText(line, startX, startY+i, width, useStyle)
	}
}

var logStyles = map[slog.Level]tcell.Style{
	slog.LevelDebug: tcell.StyleDefault.Foreground(tcell.ColorGray),
	slog.LevelInfo:  tcell.StyleDefault.Foreground(tcell.ColorBlue),
	slog.LevelWarn:  tcell.StyleDefault.Foreground(tcell.ColorYellow),
	slog.LevelError: tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
}

func (t *Backend) drawLogs(startX, startY, width, termHeight int) {
	if width <= 0 || startY >= termHeight {
		return
	}

	availableHeight := termHeight - startY - 1
	if availableHeight <= 0 {
		return
	}

	// Over-fetch so level filtering still fills the panel.
	recent := t.logBuffer.GetRecent(availableHeight * 2)
	logs := make([]render.LogEntry, 0, availableHeight)
	for _, entry := range recent {
		if entry.Level < t.logLevel {
			continue
		}
		logs = append(logs, entry)
		if len(logs) >= availableHeight {
			break
		}
	}

	for i, entry := range logs {
		y := startY + i
		if y >= termHeight-1 {
			break
		}

		style, ok := logStyles[entry.Level]
		if !ok {
			style = logStyles[slog.LevelInfo]
		}

		text := render.FormatLogEntry(entry)
		if len(text) > width && width > 3 {
			text = text[:width-3] + "..."
		}
		t.drawText(text, startX, y, width, style)
	}
}

// drawText writes a line clipped to the panel width.
func (t *Backend) drawText(text string, startX, y, width int, style tcell.Style) {
	x := startX
	for j, ch := range text {
		if j >= width {
			break
		}
		t.screen.SetContent(x, y, ch, nil, style)
		x++
	}
}

// redrawTestPattern repaints the whole pattern frame at the current
// animation phase.
func (t *Backend) redrawTestPattern() {
	phase := t.testFrameCount / display.TestPatternAnimationFrames
	for y := 0; y < video.FramebufferHeight; y++ {
		for x := 0; x < video.FramebufferWidth; x++ {
			t.testPatternFrame.SetPixel(uint(x), uint(y), patternColor(t.testPatternType, x, y, phase))
		}
	}
}

// patternColor picks the pixel color for one of the built-in test patterns.
// The phase argument shifts the moving patterns; the static ones ignore it.
func patternColor(patternType, x, y, phase int) video.GBColor {
	switch patternType {
	case 0:
		tx := x / display.TestPatternTileSize
		ty := y / display.TestPatternTileSize
		if (tx+ty)%2 == 0 {
			return video.WhiteColor
		}
		return video.BlackColor
	case 1:
		gray := uint32(x * display.GrayscaleWhite / video.FramebufferWidth)
		return video.GBColor((gray << display.RGBARShift) | (gray << display.RGBAGShift) | (gray << display.RGBABShift) | display.FullAlpha)
	case 2:
		band := (x + phase*display.TestPatternStripeSpeed) / display.TestPatternStripeWidth
		if band%2 == 0 {
			return video.WhiteColor
		}
		return video.DarkGreyColor
	default:
		diag := (x + y + phase*display.TestPatternDiagonalSpeed) / display.TestPatternTileSize
		if diag%2 == 0 {
			return video.LightGreyColor
		}
		return video.DarkGreyColor
	}
}
