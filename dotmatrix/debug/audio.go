package debug

import (
	"math"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/addr"
)

type ChannelStatus struct {
	Enabled   bool
	Frequency float64
	Volume    uint8
	DutyCycle uint8
	Note      string
}

// AudioData is the sound register file decoded for display: master switch,
// panning volumes and the per-channel frequency/volume/duty state.
type AudioData struct {
	APUEnabled   bool
	MasterVolume struct {
		Left  uint8
		Right uint8
	}
	Channels struct {
		Ch1 ChannelStatus
		Ch2 ChannelStatus
		Ch3 ChannelStatus
		Ch4 ChannelStatus
	}
}

// VolumeProvider reports live envelope volumes. Without one the extractor
// falls back to the programmed envelope start values.
type VolumeProvider interface {
	GetChannelVolumes() (ch1, ch2, ch3, ch4 uint8)
}

// pulseRegs names the register set of one square wave channel. The two pulse
// channels decode identically and differ only in addresses.
type pulseRegs struct {
	duty      uint16
	envelope  uint16
	freqLow   uint16
	freqHigh  uint16
	enableBit uint8
}

var (
	pulse1 = pulseRegs{addr.NR11, addr.NR12, addr.NR13, addr.NR14, 0x01}
	pulse2 = pulseRegs{addr.NR21, addr.NR22, addr.NR23, addr.NR24, 0x02}
)

func ExtractAudioData(reader MemoryReader, volumeProvider VolumeProvider) *AudioData {
	data := &AudioData{}

	data.APUEnabled = reader.Read(addr.NR52)&0x80 != 0

	nr50 := reader.Read(addr.NR50)
	data.MasterVolume.Left = (nr50 >> 4) & 0x07
	data.MasterVolume.Right = nr50 & 0x07

	var v1, v2, v4 *uint8
	if volumeProvider != nil {
		ch1, ch2, _, ch4 := volumeProvider.GetChannelVolumes()
		v1, v2, v4 = &ch1, &ch2, &ch4
	}

	data.Channels.Ch1 = extractPulse(reader, pulse1, v1)
	data.Channels.Ch2 = extractPulse(reader, pulse2, v2)
	data.Channels.Ch3 = extractWave(reader)
	data.Channels.Ch4 = extractNoise(reader, v4)

	return data
}

// freqRegister assembles the 11-bit period value from its register pair.
func freqRegister(reader MemoryReader, low, high uint16) uint16 {
	return uint16(reader.Read(high)&0x07)<<8 | uint16(reader.Read(low))
}

// envelopeVolume prefers the live envelope level and falls back to the
// programmed start value.
func envelopeVolume(reader MemoryReader, envelope uint16, live *uint8) uint8 {
	if live != nil {
		return *live
	}
	return (reader.Read(envelope) >> 4) & 0x0F
}

func extractPulse(reader MemoryReader, regs pulseRegs, live *uint8) ChannelStatus {
	ch := ChannelStatus{Enabled: reader.Read(addr.NR52)&regs.enableBit != 0}

	if f := freqRegister(reader, regs.freqLow, regs.freqHigh); f > 0 {
		ch.Frequency = 131072.0 / float64(2048-f)
	}

	ch.Volume = envelopeVolume(reader, regs.envelope, live)
	ch.DutyCycle = (reader.Read(regs.duty) >> 6) & 0x03
	ch.Note = frequencyToNote(ch.Frequency)
	return ch
}

func extractWave(reader MemoryReader) ChannelStatus {
	ch := ChannelStatus{Enabled: reader.Read(addr.NR52)&0x04 != 0}

	if f := freqRegister(reader, addr.NR33, addr.NR34); f > 0 {
		ch.Frequency = 65536.0 / float64(2048-f)
	}

	// The wave channel has a 2-bit volume shift instead of an envelope, so a
	// live envelope level never applies here.
	switch (reader.Read(addr.NR32) >> 5) & 0x03 {
	case 1:
		ch.Volume = 15
	case 2:
		ch.Volume = 7
	case 3:
		ch.Volume = 3
	}

	ch.Note = frequencyToNote(ch.Frequency)
	return ch
}

func extractNoise(reader MemoryReader, live *uint8) ChannelStatus {
	ch := ChannelStatus{
		Enabled: reader.Read(addr.NR52)&0x08 != 0,
		Volume:  envelopeVolume(reader, addr.NR42, live),
		Note:    "Noise",
	}

	nr43 := reader.Read(addr.NR43)
	divisor := float64(nr43 & 0x07)
	if divisor == 0 {
		divisor = 0.5
	}
	shift := (nr43 >> 4) & 0x0F
	ch.Frequency = 524288.0 / divisor / float64(uint(1)<<uint(shift+1))

	return ch
}

func frequencyToNote(freq float64) string {
	if freq < 20 || freq > 20000 {
		return "--"
	}

	notes := []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	a4 := 440.0

	// Round to the nearest MIDI note number; A4 is 69.
	midi := int(12.0*math.Log2(freq/a4) + 69.5)
	noteIndex := midi % 12
	octave := midi/12 - 1

	if octave < 0 || octave > 9 {
		return "--"
	}

	return notes[noteIndex] + string(rune('0'+octave))
}
