package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/addr"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/cart"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/interrupt"
)

// recordingVideo is a map-backed VideoUnit that just remembers writes, so
// tests can observe what the bus routes to the picture unit.
type recordingVideo struct {
	mem map[uint16]byte
}

func newRecordingVideo() *recordingVideo {
	return &recordingVideo{mem: make(map[uint16]byte)}
}

func (v *recordingVideo) Read(address uint16) byte {
	return v.mem[address]
}

func (v *recordingVideo) Write(address uint16, value byte) {
	v.mem[address] = value
}

func newTestMMU(cgb bool) (*MMU, *interrupt.Controller) {
	irq := interrupt.NewController()
	return New(cart.NewEmpty(), irq, cgb), irq
}

func TestEchoRAMAliasesWorkRAM(t *testing.T) {
	m, _ := newTestMMU(false)

	m.Write(0xC123, 0xAB)
	assert.Equal(t, byte(0xAB), m.Read(0xE123), "echo read should see work RAM write")

	m.Write(0xFDFF, 0x5A)
	assert.Equal(t, byte(0x5A), m.Read(0xDDFF), "work RAM read should see echo write")
}

func TestUnusableRegionReadsFFIgnoresWrites(t *testing.T) {
	m, _ := newTestMMU(false)
	video := newRecordingVideo()
	m.AttachVideo(video)

	for _, address := range []uint16{0xFEA0, 0xFEC3, 0xFEFF} {
		m.Write(address, 0x12)
		assert.Equal(t, byte(0xFF), m.Read(address))
		assert.NotContains(t, video.mem, address, "gap write must not reach the picture unit")
	}
}

func TestWorkRAMBanking(t *testing.T) {
	m, _ := newTestMMU(true)

	m.Write(addr.SVBK, 0x01)
	m.Write(0xD000, 0x11)
	m.Write(addr.SVBK, 0x02)
	m.Write(0xD000, 0x22)
	m.Write(addr.SVBK, 0x07)
	m.Write(0xD000, 0x77)

	m.Write(addr.SVBK, 0x01)
	assert.Equal(t, byte(0x11), m.Read(0xD000))
	m.Write(addr.SVBK, 0x02)
	assert.Equal(t, byte(0x22), m.Read(0xD000))
	m.Write(addr.SVBK, 0x07)
	assert.Equal(t, byte(0x77), m.Read(0xD000))

	// Bank 0 selects bank 1.
	m.Write(addr.SVBK, 0x00)
	assert.Equal(t, byte(0x11), m.Read(0xD000))

	// The fixed window at 0xC000 ignores the bank select.
	m.Write(0xC000, 0x99)
	m.Write(addr.SVBK, 0x05)
	assert.Equal(t, byte(0x99), m.Read(0xC000))

	// Only the low three bits stick, the rest read as 1.
	m.Write(addr.SVBK, 0xFA)
	assert.Equal(t, byte(0xFA), m.Read(addr.SVBK))
}

func TestBootROMOverlay(t *testing.T) {
	m, _ := newTestMMU(true)

	boot := make([]byte, bootROMSizeColor)
	for i := range boot {
		boot[i] = 0x42
	}
	assert.NoError(t, m.LoadBootROM(boot))
	assert.True(t, m.BootROMMapped())

	assert.Equal(t, byte(0x42), m.Read(0x0000))
	assert.Equal(t, byte(0x42), m.Read(0x00FF))
	assert.Equal(t, byte(0x42), m.Read(0x0150), "color boot image resumes past the header")
	assert.Equal(t, byte(0x00), m.Read(0x0100), "header window reads the cartridge")
	assert.Equal(t, byte(0xFE), m.Read(addr.BOOT))

	// Zero writes leave the overlay in place, any other value unmaps it.
	m.Write(addr.BOOT, 0x00)
	assert.True(t, m.BootROMMapped())
	m.Write(addr.BOOT, 0x01)
	assert.False(t, m.BootROMMapped())
	assert.Equal(t, byte(0x00), m.Read(0x0000))
	assert.Equal(t, byte(0xFF), m.Read(addr.BOOT))
}

func TestLoadBootROMRejectsBadSize(t *testing.T) {
	m, _ := newTestMMU(false)
	err := m.LoadBootROM(make([]byte, 100))
	assert.ErrorIs(t, err, ErrBootROMSize)
	assert.False(t, m.BootROMMapped())
}

func TestOAMDMACopiesPage(t *testing.T) {
	m, _ := newTestMMU(false)
	video := newRecordingVideo()
	m.AttachVideo(video)

	for i := range uint16(160) {
		m.Write(0xC000+i, byte(i))
	}
	m.Write(addr.DMA, 0xC0)

	for i := range uint16(160) {
		assert.Equal(t, byte(i), video.mem[addr.OAMStart+i])
	}
	assert.Equal(t, byte(0xC0), m.Read(addr.DMA), "last source page reads back")
}

func TestVRAMDMAGeneralPurpose(t *testing.T) {
	m, _ := newTestMMU(true)
	video := newRecordingVideo()
	m.AttachVideo(video)

	for i := range uint16(32) {
		m.Write(0xC000+i, byte(i)+1)
	}
	m.Write(addr.HDMA1, 0xC0)
	m.Write(addr.HDMA2, 0x00)
	m.Write(addr.HDMA3, 0x00)
	m.Write(addr.HDMA4, 0x10)

	// Bit 7 clear runs every block at once; low bits hold blocks minus one.
	m.Write(addr.HDMA5, 0x01)

	for i := range uint16(32) {
		assert.Equal(t, byte(i)+1, video.mem[0x8010+i])
	}
	assert.Equal(t, byte(0xFF), m.Read(addr.HDMA5), "completed transfer reads done")

	// The latches are write-only.
	assert.Equal(t, byte(0xFF), m.Read(addr.HDMA1))
	assert.Equal(t, byte(0xFF), m.Read(addr.HDMA2))
	assert.Equal(t, byte(0xFF), m.Read(addr.HDMA3))
	assert.Equal(t, byte(0xFF), m.Read(addr.HDMA4))
}

func TestVRAMDMAHBlankStepsOneBlock(t *testing.T) {
	m, _ := newTestMMU(true)
	video := newRecordingVideo()
	m.AttachVideo(video)

	for i := range uint16(32) {
		m.Write(0xC000+i, 0xEE)
	}
	m.Write(addr.HDMA1, 0xC0)
	m.Write(addr.HDMA2, 0x00)
	m.Write(addr.HDMA3, 0x00)
	m.Write(addr.HDMA4, 0x00)
	m.Write(addr.HDMA5, 0x81)

	assert.Equal(t, byte(0x01), m.Read(addr.HDMA5), "armed transfer reads remaining blocks")
	assert.NotContains(t, video.mem, uint16(0x8000), "nothing moves before the first H-blank")

	m.StepHBlankDMA()
	assert.Equal(t, byte(0xEE), video.mem[0x8000])
	assert.NotContains(t, video.mem, uint16(0x8010))
	assert.Equal(t, byte(0x00), m.Read(addr.HDMA5))

	m.StepHBlankDMA()
	assert.Equal(t, byte(0xEE), video.mem[0x8010])
	assert.Equal(t, byte(0xFF), m.Read(addr.HDMA5))

	// Finished: further H-blanks move nothing.
	m.StepHBlankDMA()
	assert.NotContains(t, video.mem, uint16(0x8020))
}

func TestVRAMDMACancel(t *testing.T) {
	m, _ := newTestMMU(true)
	video := newRecordingVideo()
	m.AttachVideo(video)

	m.Write(addr.HDMA5, 0x87)
	assert.Equal(t, byte(0x07), m.Read(addr.HDMA5))

	// Re-arming while active is ignored.
	m.Write(addr.HDMA5, 0xFF)
	assert.Equal(t, byte(0x07), m.Read(addr.HDMA5))

	// A write with bit 7 clear stops the transfer, keeping the count.
	m.Write(addr.HDMA5, 0x05)
	assert.Equal(t, byte(0x87), m.Read(addr.HDMA5))

	m.StepHBlankDMA()
	assert.Empty(t, video.mem, "cancelled transfer must not move data")
}

func TestSpeedSwitch(t *testing.T) {
	m, _ := newTestMMU(true)

	assert.Equal(t, byte(0x7E), m.Read(addr.KEY1))
	assert.False(t, m.SpeedSwitchArmed())

	m.Write(addr.KEY1, 0x01)
	assert.True(t, m.SpeedSwitchArmed())
	assert.Equal(t, byte(0x7F), m.Read(addr.KEY1))

	m.ToggleSpeed()
	assert.True(t, m.DoubleSpeed())
	assert.False(t, m.SpeedSwitchArmed())
	assert.Equal(t, byte(0xFE), m.Read(addr.KEY1))

	m.Write(addr.KEY1, 0x01)
	m.ToggleSpeed()
	assert.False(t, m.DoubleSpeed())

	// Monochrome hardware has no speed switch.
	dmg, _ := newTestMMU(false)
	dmg.Write(addr.KEY1, 0x01)
	assert.False(t, dmg.SpeedSwitchArmed())
	assert.Equal(t, byte(0xFF), dmg.Read(addr.KEY1))
}

func TestInterruptRegisterRouting(t *testing.T) {
	m, irq := newTestMMU(false)

	m.Write(addr.IE, 0x15)
	assert.Equal(t, byte(0x15), irq.ReadEnable())
	assert.Equal(t, byte(0x15), m.Read(addr.IE))

	m.Write(addr.IF, 0x05)
	assert.Equal(t, byte(0xE5), m.Read(addr.IF), "upper flag bits read as 1")
}

func TestJoypadRouting(t *testing.T) {
	m, irq := newTestMMU(false)

	m.Write(addr.P1, 0x20)
	m.HandleKeyPress(JoypadRight)
	assert.Equal(t, byte(0xEE), m.Read(addr.P1))
	assert.True(t, irq.Requested(addr.JoypadInterrupt))

	m.HandleKeyRelease(JoypadRight)
	assert.Equal(t, byte(0xEF), m.Read(addr.P1))
}

func TestTimerRouting(t *testing.T) {
	m, _ := newTestMMU(false)

	m.SetTimerSeed(0xAB00)
	assert.Equal(t, byte(0xAB), m.Read(addr.DIV))

	m.Write(addr.TMA, 0x42)
	assert.Equal(t, byte(0x42), m.Read(addr.TMA))
	m.Write(addr.TAC, 0x05)
	assert.Equal(t, byte(0xFD), m.Read(addr.TAC))

	m.Advance(256)
	assert.Equal(t, byte(0xAC), m.Read(addr.DIV))
}

func TestSerialRouting(t *testing.T) {
	m, irq := newTestMMU(false)

	m.Write(addr.SB, 0x41)
	assert.Equal(t, byte(0x41), m.Read(addr.SB))

	m.Write(addr.SC, 0x81)
	m.Advance(4096)
	assert.True(t, irq.Requested(addr.SerialInterrupt))
	assert.Equal(t, byte(0xFF), m.Read(addr.SB))
}

func TestAudioRegisterRouting(t *testing.T) {
	m, _ := newTestMMU(false)

	m.Write(addr.NR50, 0x55)
	assert.Equal(t, byte(0x55), m.Read(addr.NR50))

	m.Write(addr.WaveRAMStart, 0x3C)
	assert.Equal(t, byte(0x3C), m.Read(addr.WaveRAMStart))
}

func TestVideoRegisterRouting(t *testing.T) {
	m, _ := newTestMMU(true)
	video := newRecordingVideo()
	m.AttachVideo(video)

	m.Write(addr.LCDC, 0x91)
	assert.Equal(t, byte(0x91), video.mem[addr.LCDC])

	video.mem[addr.LY] = 42
	assert.Equal(t, byte(42), m.Read(addr.LY))

	m.Write(addr.VBK, 0x01)
	assert.Equal(t, byte(0x01), video.mem[addr.VBK])
	m.Write(addr.BGPI, 0x80)
	assert.Equal(t, byte(0x80), video.mem[addr.BGPI])

	m.Write(addr.DMA, 0x00)
	assert.NotContains(t, video.mem, addr.DMA, "the OAM DMA trigger is bus-owned")
}

func TestVRAMAndOAMRouting(t *testing.T) {
	m, _ := newTestMMU(false)

	// Without a picture unit attached the regions float.
	m.Write(0x8000, 0x11)
	assert.Equal(t, byte(0xFF), m.Read(0x8000))

	video := newRecordingVideo()
	m.AttachVideo(video)
	m.Write(0x8000, 0x11)
	m.Write(addr.OAMStart, 0x22)
	assert.Equal(t, byte(0x11), m.Read(0x8000))
	assert.Equal(t, byte(0x22), m.Read(addr.OAMStart))
}

func TestUndocumentedIORetainsWrites(t *testing.T) {
	m, _ := newTestMMU(false)

	m.Write(0xFF72, 0x5A)
	assert.Equal(t, byte(0x5A), m.Read(0xFF72))
}

func TestHighRAM(t *testing.T) {
	m, _ := newTestMMU(false)

	m.Write(0xFF80, 0x01)
	m.Write(0xFFFE, 0xFE)
	assert.Equal(t, byte(0x01), m.Read(0xFF80))
	assert.Equal(t, byte(0xFE), m.Read(0xFFFE))
}
