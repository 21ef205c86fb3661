package audio

import (
	"github.com/dmgcore/go-dotmatrix/dotmatrix/addr"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/bit"
)

// Provider is what backends pull audio state through. Synthesis is out of
// scope for this unit, so samples are silence, but channel status and the
// mute controls stay live so the debug views and hotkeys keep working.
type Provider interface {
	// GetSamples retrieves audio samples for playback.
	GetSamples(count int) []int16

	// Audio debugging controls

	ToggleChannel(channel int)
	SoloChannel(channel int)
	GetChannelStatus() (ch1, ch2, ch3, ch4 bool)
}

var _ Provider = (*APU)(nil)

// GetSamples returns count samples of silence.
func (a *APU) GetSamples(count int) []int16 {
	return make([]int16, count)
}

// ToggleChannel flips the mute state of one channel (1-4).
func (a *APU) ToggleChannel(channel int) {
	if channel >= 1 && channel <= 4 {
		a.muted[channel-1] = !a.muted[channel-1]
	}
}

// SoloChannel mutes every channel except the given one (1-4).
func (a *APU) SoloChannel(channel int) {
	for i := range a.muted {
		a.muted[i] = i != channel-1
	}
}

// UnmuteAll clears all mute state.
func (a *APU) UnmuteAll() {
	for i := range a.muted {
		a.muted[i] = false
	}
}

// GetChannelVolumes reports envelope volumes for the debug views. Without
// synthesis the envelopes never tick, so these are the programmed start
// values from the envelope registers.
func (a *APU) GetChannelVolumes() (ch1, ch2, ch3, ch4 uint8) {
	ch1 = a.registers[addr.NR12-addr.AudioStart] >> 4
	ch2 = a.registers[addr.NR22-addr.AudioStart] >> 4
	switch (a.registers[addr.NR32-addr.AudioStart] >> 5) & 0x03 {
	case 1:
		ch3 = 15
	case 2:
		ch3 = 7
	case 3:
		ch3 = 3
	}
	ch4 = a.registers[addr.NR42-addr.AudioStart] >> 4
	return
}

// GetChannelStatus reports which channels are audible: unit powered, channel
// DAC on per its registers, and not muted.
func (a *APU) GetChannelStatus() (ch1, ch2, ch3, ch4 bool) {
	if !a.enabled {
		return false, false, false, false
	}
	ch1 = !a.muted[0] && a.dacOn(addr.NR12)
	ch2 = !a.muted[1] && a.dacOn(addr.NR22)
	ch3 = !a.muted[2] && bit.IsSet(7, a.registers[addr.NR30-addr.AudioStart])
	ch4 = !a.muted[3] && a.dacOn(addr.NR42)
	return
}

// dacOn reports whether an envelope register's volume/direction bits would
// power the channel's DAC.
func (a *APU) dacOn(envelope uint16) bool {
	return a.registers[envelope-addr.AudioStart]&0xF8 != 0
}
