package action

// Action is a logical input: a pad button or an emulator control. Backends
// translate platform keys into actions; the machine and the input layer never
// see raw keys.
type Action int

const (
	// Pad inputs, forwarded to the joypad register.
	GBButtonA Action = iota
	GBButtonB
	GBButtonStart
	GBButtonSelect
	GBDPadUp
	GBDPadDown
	GBDPadLeft
	GBDPadRight

	// Emulator controls.
	EmulatorDebugToggle
	EmulatorDebugUpdate
	EmulatorSnapshot
	EmulatorPauseToggle
	EmulatorStepFrame
	EmulatorStepInstruction
	EmulatorTestPatternCycle
	EmulatorQuit

	// Diagnostic controls.
	DebugLogLevelIncrease
	DebugLogLevelDecrease

	// Audio debug controls.
	AudioToggleChannel1
	AudioToggleChannel2
	AudioToggleChannel3
	AudioToggleChannel4
	AudioSoloChannel1
	AudioSoloChannel2
	AudioSoloChannel3
	AudioSoloChannel4
	AudioShowStatus
)

// Category groups actions by how the input layer treats them. Game input is
// latched every frame and never debounced; everything else is a one-shot
// control.
type Category int

const (
	CategoryGameInput Category = iota
	CategoryEmulator
	CategoryDebug
	CategoryAudio
)

// Info is display and routing metadata for an action.
type Info struct {
	Name     string
	Category Category
}

var infos = map[Action]Info{
	GBButtonA:      {"A", CategoryGameInput},
	GBButtonB:      {"B", CategoryGameInput},
	GBButtonStart:  {"Start", CategoryGameInput},
	GBButtonSelect: {"Select", CategoryGameInput},
	GBDPadUp:       {"Up", CategoryGameInput},
	GBDPadDown:     {"Down", CategoryGameInput},
	GBDPadLeft:     {"Left", CategoryGameInput},
	GBDPadRight:    {"Right", CategoryGameInput},

	EmulatorDebugToggle:      {"Toggle debug view", CategoryEmulator},
	EmulatorDebugUpdate:      {"Refresh debug view", CategoryEmulator},
	EmulatorSnapshot:         {"Save snapshot", CategoryEmulator},
	EmulatorPauseToggle:      {"Pause/resume", CategoryEmulator},
	EmulatorStepFrame:        {"Step one frame", CategoryEmulator},
	EmulatorStepInstruction:  {"Step one instruction", CategoryEmulator},
	EmulatorTestPatternCycle: {"Cycle test pattern", CategoryEmulator},
	EmulatorQuit:             {"Quit", CategoryEmulator},

	DebugLogLevelIncrease: {"More verbose logs", CategoryDebug},
	DebugLogLevelDecrease: {"Less verbose logs", CategoryDebug},

	AudioToggleChannel1: {"Toggle channel 1", CategoryAudio},
	AudioToggleChannel2: {"Toggle channel 2", CategoryAudio},
	AudioToggleChannel3: {"Toggle channel 3", CategoryAudio},
	AudioToggleChannel4: {"Toggle channel 4", CategoryAudio},
	AudioSoloChannel1:   {"Solo channel 1", CategoryAudio},
	AudioSoloChannel2:   {"Solo channel 2", CategoryAudio},
	AudioSoloChannel3:   {"Solo channel 3", CategoryAudio},
	AudioSoloChannel4:   {"Solo channel 4", CategoryAudio},
	AudioShowStatus:     {"Show channel status", CategoryAudio},
}

// GetInfo returns the metadata for an action. Unknown actions report as
// emulator controls so they still get debounced.
func GetInfo(act Action) Info {
	if info, ok := infos[act]; ok {
		return info
	}
	return Info{Name: "unknown", Category: CategoryEmulator}
}
