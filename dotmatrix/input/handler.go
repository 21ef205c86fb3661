// Package input maps keys to logical actions and debounces the one-shot
// controls so a held key does not retrigger them.
package input

import (
	"time"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/backend"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/action"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/event"
)

// Handler debounces emulator control presses. Game input passes through
// untouched: the pad wants every edge, debouncing there would eat inputs.
type Handler struct {
	lastActionTime map[action.Action]time.Time
	debounceDelay  time.Duration
}

func NewHandler() *Handler {
	return &Handler{
		lastActionTime: make(map[action.Action]time.Time),
		debounceDelay:  300 * time.Millisecond,
	}
}

// ProcessEvent reports whether the event should be acted on. Presses of
// non-game actions within the debounce window of the previous press are
// dropped; releases and holds always pass.
func (h *Handler) ProcessEvent(evt backend.InputEvent) bool {
	if evt.Type != event.Press {
		return true
	}
	if action.GetInfo(evt.Action).Category == action.CategoryGameInput {
		return true
	}

	now := time.Now()
	if lastTime, exists := h.lastActionTime[evt.Action]; exists {
		if now.Sub(lastTime) < h.debounceDelay {
			return false
		}
	}
	h.lastActionTime[evt.Action] = now
	return true
}
