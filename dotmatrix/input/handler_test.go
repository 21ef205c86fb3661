package input

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/backend"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/action"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/event"
)

func TestHandlerDebouncing(t *testing.T) {
	tests := []struct {
		name           string
		action         action.Action
		eventType      event.Type
		timeBetween    time.Duration
		expectDebounce bool
	}{
		{
			name:           "rapid control press is debounced",
			action:         action.EmulatorDebugToggle,
			eventType:      event.Press,
			timeBetween:    100 * time.Millisecond,
			expectDebounce: true,
		},
		{
			name:           "slow control press passes",
			action:         action.EmulatorDebugToggle,
			eventType:      event.Press,
			timeBetween:    400 * time.Millisecond,
			expectDebounce: false,
		},
		{
			name:           "rapid pad press passes",
			action:         action.GBButtonA,
			eventType:      event.Press,
			timeBetween:    10 * time.Millisecond,
			expectDebounce: false,
		},
		{
			name:           "release events pass",
			action:         action.EmulatorDebugToggle,
			eventType:      event.Release,
			timeBetween:    10 * time.Millisecond,
			expectDebounce: false,
		},
		{
			name:           "hold events pass",
			action:         action.EmulatorDebugToggle,
			eventType:      event.Hold,
			timeBetween:    10 * time.Millisecond,
			expectDebounce: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler()

			evt := backend.InputEvent{
				Action: tt.action,
				Type:   tt.eventType,
			}
			assert.True(t, handler.ProcessEvent(evt), "first event should always pass")

			time.Sleep(tt.timeBetween)

			result := handler.ProcessEvent(evt)
			if tt.expectDebounce {
				assert.False(t, result, "second event should be debounced")
			} else {
				assert.True(t, result, "second event should not be debounced")
			}
		})
	}
}

func TestHandlerTracksActionsSeparately(t *testing.T) {
	handler := NewHandler()

	evt1 := backend.InputEvent{Action: action.EmulatorDebugToggle, Type: event.Press}
	evt2 := backend.InputEvent{Action: action.EmulatorSnapshot, Type: event.Press}

	assert.True(t, handler.ProcessEvent(evt1), "first debug toggle should pass")
	assert.True(t, handler.ProcessEvent(evt2), "first snapshot should pass")

	assert.False(t, handler.ProcessEvent(evt1), "rapid debug toggle should be debounced")
	assert.False(t, handler.ProcessEvent(evt2), "rapid snapshot should be debounced")
}

func TestHandlerHoldNeverDebounced(t *testing.T) {
	handler := NewHandler()

	evt := backend.InputEvent{Action: action.EmulatorDebugToggle, Type: event.Hold}
	for i := 0; i < 5; i++ {
		assert.True(t, handler.ProcessEvent(evt), "hold event should always pass")
	}
}

func TestDefaultKeyMap(t *testing.T) {
	act, ok := GetDefaultMapping("z")
	assert.True(t, ok)
	assert.Equal(t, action.GBButtonA, act)

	act, ok = GetDefaultMapping("Escape")
	assert.True(t, ok)
	assert.Equal(t, action.EmulatorQuit, act)

	_, ok = GetDefaultMapping("no-such-key")
	assert.False(t, ok)

	// Every mapped action gets routed by its category, so each entry must
	// carry metadata.
	for key, act := range DefaultKeyMap {
		info := action.GetInfo(act)
		assert.NotEqual(t, "unknown", info.Name, "key %q maps to an action without metadata", key)
	}
}
