package input

import "github.com/dmgcore/go-dotmatrix/dotmatrix/input/action"

// DefaultKeyMap is the shared key binding table. Backends translate their
// platform key names into these strings and look actions up here, overriding
// or extending as the platform needs.
var DefaultKeyMap = map[string]action.Action{
	// Pad
	"z":      action.GBButtonA,
	"x":      action.GBButtonB,
	"Enter":  action.GBButtonStart,
	"Shift":  action.GBButtonSelect,
	"Select": action.GBButtonSelect,
	"Up":     action.GBDPadUp,
	"Down":   action.GBDPadDown,
	"Left":   action.GBDPadLeft,
	"Right":  action.GBDPadRight,

	// WASD alternative for the pad
	"w": action.GBDPadUp,
	"s": action.GBDPadDown,
	"a": action.GBDPadLeft,
	"d": action.GBDPadRight,

	// Emulator controls
	"Space":  action.EmulatorPauseToggle,
	"p":      action.EmulatorPauseToggle,
	"o":      action.EmulatorStepFrame,
	"f":      action.EmulatorStepFrame,
	"i":      action.EmulatorStepInstruction,
	"n":      action.EmulatorStepInstruction,
	"F9":     action.EmulatorSnapshot,
	"F10":    action.EmulatorDebugToggle,
	"F11":    action.EmulatorDebugUpdate,
	"F12":    action.EmulatorTestPatternCycle,
	"Escape": action.EmulatorQuit,
	"q":      action.EmulatorQuit,

	// Audio debug controls
	"F1": action.AudioToggleChannel1,
	"F2": action.AudioToggleChannel2,
	"F3": action.AudioToggleChannel3,
	"F4": action.AudioToggleChannel4,
	"1":  action.AudioSoloChannel1,
	"2":  action.AudioSoloChannel2,
	"3":  action.AudioSoloChannel3,
	"4":  action.AudioSoloChannel4,
	"F5": action.AudioShowStatus,

	// Log verbosity, with and without shift
	"+": action.DebugLogLevelIncrease,
	"=": action.DebugLogLevelIncrease,
	"-": action.DebugLogLevelDecrease,
	"_": action.DebugLogLevelDecrease,
}

// GetDefaultMapping returns the default action for a key, if one exists.
func GetDefaultMapping(key string) (action.Action, bool) {
	act, ok := DefaultKeyMap[key]
	return act, ok
}
