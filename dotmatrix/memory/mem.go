package memory

import (
	"errors"
	"fmt"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/addr"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/audio"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/cart"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/interrupt"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/serial"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

const (
	wramBankSize = 0x1000
	wramSize     = 8 * wramBankSize
	hramSize     = 0x7F

	echoOffset = 0x2000

	// The boot overlay never covers the cartridge header window; boot code
	// reads the logo and checksum bytes from the inserted cartridge.
	headerWindowStart = 0x0100
	headerWindowEnd   = 0x0150

	bootROMSizeClassic = 256
	bootROMSizeColor   = 2304
)

// ErrBootROMSize flags a boot image whose length matches neither hardware
// revision.
var ErrBootROMSize = errors.New("bootrom must be 256 (classic) or 2304 (color) bytes")

// SerialPort is the minimal interface for a serial device connected to SB/SC.
// Implementations only accept reads and writes of addr.SB and addr.SC.
type SerialPort interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	Advance(cycles int)
}

// VideoUnit is the bus-facing surface of the picture unit: VRAM, OAM and the
// LCD register file. The MMU routes those regions here; bank selection and
// palette ports sit behind the same two methods.
type VideoUnit interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
}

// MMU routes the 64K address space to its owning component: cartridge ROM
// and external RAM to the bank controller, VRAM/OAM and the LCD registers to
// the picture unit, SB/SC to the serial port, DIV..TAC to the timer, IF/IE
// to the interrupt controller. Work RAM, HRAM and the remaining I/O bytes
// live here, as do the two DMA engines and the speed-switch latch.
type MMU struct {
	cart   *cart.Cartridge
	irq    *interrupt.Controller
	video  VideoUnit
	apu    *audio.APU
	serial SerialPort
	timer  *Timer
	joypad *Joypad

	regionMap [256]memRegion

	wram [wramSize]byte
	hram [hramSize]byte
	io   [0x80]byte
	svbk byte

	bootrom []byte

	cgb         bool
	doubleSpeed bool
	speedArmed  bool

	// VRAM DMA latches (color mode). hdma5 mirrors the 0xFF55 register: the
	// low seven bits count remaining blocks minus one, bit 7 set means no
	// H-blank transfer is running.
	dmaSource uint16
	dmaDest   uint16
	hdma5     byte
}

// New wires a memory unit for the given cartridge. The color flag enables
// the color-hardware behaviors that reach beyond plain storage: the speed
// switch and the STOP gating built on it.
func New(card *cart.Cartridge, irq *interrupt.Controller, cgb bool) *MMU {
	m := &MMU{
		cart:  card,
		irq:   irq,
		cgb:   cgb,
		apu:   audio.New(),
		hdma5: 0xFF,
	}
	m.timer = NewTimer(irq)
	m.joypad = NewJoypad(irq)
	m.serial = serial.NewLogSink(func() { irq.Request(addr.SerialInterrupt) })
	initRegionMap(m)
	return m
}

func initRegionMap(m *MMU) {
	// ROM: 0x0000-0x7FFF
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	// VRAM: 0x8000-0x9FFF
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	// External RAM: 0xA000-0xBFFF
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	// Work RAM: 0xC000-0xDFFF
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	// Echo RAM: 0xE000-0xFDFF
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	// OAM and the unusable gap: 0xFE00-0xFEFF
	m.regionMap[0xFE] = regionOAM
	// IO, HRAM, IE: 0xFF00-0xFFFF
	m.regionMap[0xFF] = regionIO
}

// AttachVideo connects the picture unit. Until one is attached, reads from
// the video regions return 0xFF and writes are dropped.
func (m *MMU) AttachVideo(v VideoUnit) {
	m.video = v
}

// SetSerial replaces the serial device, e.g. to echo transfers somewhere
// other than the log.
func (m *MMU) SetSerial(port SerialPort) {
	m.serial = port
}

// Advance moves the bus-resident peripherals (timer, serial port) forward by
// the given number of machine cycles.
func (m *MMU) Advance(cycles int) {
	m.timer.Advance(cycles)
	if m.serial != nil {
		m.serial.Advance(cycles)
	}
}

// SetTimerSeed initializes the internal timer divider, used to match the
// post-boot DIV value when no bootrom runs.
func (m *MMU) SetTimerSeed(seed uint16) {
	m.timer.SetSeed(seed)
}

// LoadBootROM maps a boot image over the start of the address space. The
// overlay stays mapped until software writes a nonzero value to 0xFF50.
func (m *MMU) LoadBootROM(data []byte) error {
	if len(data) != bootROMSizeClassic && len(data) != bootROMSizeColor {
		return fmt.Errorf("%w: got %d bytes", ErrBootROMSize, len(data))
	}
	m.bootrom = data
	return nil
}

// BootROMMapped reports whether the boot overlay is still mapped.
func (m *MMU) BootROMMapped() bool {
	return m.bootrom != nil
}

// ColorMode reports whether color-hardware behavior is active.
func (m *MMU) ColorMode() bool {
	return m.cgb
}

// DoubleSpeed reports whether the machine clock runs doubled.
func (m *MMU) DoubleSpeed() bool {
	return m.doubleSpeed
}

// SpeedSwitchArmed reports whether software has prepared a speed switch
// through KEY1.
func (m *MMU) SpeedSwitchArmed() bool {
	return m.speedArmed
}

// ToggleSpeed flips between normal and double speed and clears the prepare
// flag. The CPU invokes this when STOP executes with a switch armed.
func (m *MMU) ToggleSpeed() {
	m.doubleSpeed = !m.doubleSpeed
	m.speedArmed = false
}

// AudioUnit exposes the sound register file.
func (m *MMU) AudioUnit() *audio.APU {
	return m.apu
}

// HandleKeyPress drives a joypad line low.
func (m *MMU) HandleKeyPress(key JoypadKey) {
	m.joypad.Press(key)
}

// HandleKeyRelease releases a joypad line.
func (m *MMU) HandleKeyRelease(key JoypadKey) {
	m.joypad.Release(key)
}

// Read returns the byte visible at the given address.
func (m *MMU) Read(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM:
		if m.bootrom != nil && int(address) < len(m.bootrom) &&
			!(address >= headerWindowStart && address < headerWindowEnd) {
			return m.bootrom[address]
		}
		return m.cart.Read(address)
	case regionVRAM:
		return m.videoRead(address)
	case regionExtRAM:
		return m.cart.Read(address)
	case regionWRAM:
		return m.wram[m.wramOffset(address)]
	case regionEcho:
		return m.wram[m.wramOffset(address-echoOffset)]
	case regionOAM:
		if address > addr.OAMEnd {
			// Unusable gap 0xFEA0-0xFEFF.
			return 0xFF
		}
		return m.videoRead(address)
	case regionIO:
		return m.readIO(address)
	}
	return 0xFF
}

// Write stores a byte at the given address, dispatching register side
// effects to the owning component.
func (m *MMU) Write(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		m.cart.Write(address, value)
	case regionVRAM:
		m.videoWrite(address, value)
	case regionWRAM:
		m.wram[m.wramOffset(address)] = value
	case regionEcho:
		m.wram[m.wramOffset(address-echoOffset)] = value
	case regionOAM:
		if address > addr.OAMEnd {
			return
		}
		m.videoWrite(address, value)
	case regionIO:
		m.writeIO(address, value)
	}
}

// wramOffset maps a bus address in 0xC000-0xDFFF into the banked work RAM
// array. The window at 0xD000 holds the SVBK bank; selecting bank 0 yields
// bank 1.
func (m *MMU) wramOffset(address uint16) int {
	if address < 0xD000 {
		return int(address - 0xC000)
	}
	bank := int(m.svbk)
	if bank == 0 {
		bank = 1
	}
	return bank*wramBankSize + int(address-0xD000)
}

func (m *MMU) readIO(address uint16) byte {
	switch {
	case address == addr.IE:
		return m.irq.ReadEnable()
	case address >= 0xFF80:
		return m.hram[address-0xFF80]
	case address == addr.P1:
		return m.joypad.Read()
	case address == addr.SB || address == addr.SC:
		return m.serial.Read(address)
	case address >= addr.DIV && address <= addr.TAC:
		return m.timer.Read(address)
	case address == addr.IF:
		return m.irq.ReadFlags()
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		return m.apu.ReadRegister(address)
	case isVideoRegister(address):
		return m.videoRead(address)
	case address == addr.KEY1:
		if !m.cgb {
			return 0xFF
		}
		return m.readSpeedSwitch()
	case address == addr.BOOT:
		if m.bootrom == nil {
			return 0xFF
		}
		return 0xFE
	case address >= addr.HDMA1 && address <= addr.HDMA4:
		// The source and destination latches are write-only.
		return 0xFF
	case address == addr.HDMA5:
		return m.hdma5
	case address == addr.SVBK:
		if !m.cgb {
			return 0xFF
		}
		return m.svbk | 0xF8
	default:
		return m.io[address&0x7F]
	}
}

func (m *MMU) writeIO(address uint16, value byte) {
	switch {
	case address == addr.IE:
		m.irq.WriteEnable(value)
	case address >= 0xFF80:
		m.hram[address-0xFF80] = value
	case address == addr.P1:
		m.joypad.Write(value)
	case address == addr.SB || address == addr.SC:
		m.serial.Write(address, value)
	case address >= addr.DIV && address <= addr.TAC:
		m.timer.Write(address, value)
	case address == addr.IF:
		m.irq.WriteFlags(value)
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		m.apu.WriteRegister(address, value)
	case address == addr.DMA:
		m.runOAMDMA(value)
	case isVideoRegister(address):
		m.videoWrite(address, value)
	case address == addr.KEY1:
		if m.cgb {
			m.speedArmed = value&0x01 != 0
		}
	case address == addr.BOOT:
		if value != 0 {
			m.bootrom = nil
		}
	case address == addr.HDMA1:
		m.dmaSource = uint16(value)<<8 | m.dmaSource&0x00FF
	case address == addr.HDMA2:
		m.dmaSource = m.dmaSource&0xFF00 | uint16(value)
	case address == addr.HDMA3:
		m.dmaDest = uint16(value)<<8 | m.dmaDest&0x00FF
	case address == addr.HDMA4:
		m.dmaDest = m.dmaDest&0xFF00 | uint16(value)
	case address == addr.HDMA5:
		if m.cgb {
			m.writeVRAMDMAControl(value)
		}
	case address == addr.SVBK:
		if m.cgb {
			m.svbk = value & 0x07
		}
	default:
		m.io[address&0x7F] = value
	}
}

// isVideoRegister reports addresses owned by the picture unit: the LCD
// register file, the VRAM bank select and the color palette ports. The OAM
// DMA trigger (0xFF46) is bus-owned because the copy reads through the MMU.
func isVideoRegister(address uint16) bool {
	switch {
	case address >= addr.LCDC && address <= addr.WX:
		return address != addr.DMA
	case address == addr.VBK:
		return true
	case address >= addr.BGPI && address <= addr.OBPD:
		return true
	}
	return false
}

func (m *MMU) videoRead(address uint16) byte {
	if m.video == nil {
		return 0xFF
	}
	return m.video.Read(address)
}

func (m *MMU) videoWrite(address uint16, value byte) {
	if m.video != nil {
		m.video.Write(address, value)
	}
}

// readSpeedSwitch composes KEY1: bit 7 is the current speed, bit 0 the armed
// prepare flag, everything else reads 1.
func (m *MMU) readSpeedSwitch() byte {
	value := byte(0x7E)
	if m.doubleSpeed {
		value |= 0x80
	}
	if m.speedArmed {
		value |= 0x01
	}
	return value
}

// runOAMDMA copies 160 bytes from value<<8 into OAM. The copy happens at
// once rather than spread over 160 machine cycles; software convention is to
// spin in HRAM until the hardware transfer window has passed.
func (m *MMU) runOAMDMA(value byte) {
	source := uint16(value) << 8
	for i := range uint16(160) {
		m.videoWrite(addr.OAMStart+i, m.Read(source+i))
	}
	m.io[addr.DMA&0x7F] = value
}

// writeVRAMDMAControl starts or cancels a VRAM DMA transfer (0xFF55). While
// an H-blank transfer is running, a write with bit 7 clear cancels it and
// any other write is ignored. Otherwise bit 7 selects between arming an
// H-blank transfer (one block per H-blank entry) and an immediate
// general-purpose transfer of all blocks.
func (m *MMU) writeVRAMDMAControl(value byte) {
	if m.hdma5&0x80 == 0 {
		if value&0x80 == 0 {
			m.hdma5 |= 0x80
		}
		return
	}
	m.dmaSource &= 0xFFF0
	m.dmaDest &= 0x1FF0
	m.hdma5 = value & 0x7F
	if value&0x80 != 0 {
		return
	}
	for m.hdma5 != 0xFF {
		m.copyVRAMBlock()
	}
}

// StepHBlankDMA moves one 16-byte block of an armed H-blank transfer. The
// machine calls this at each H-blank entry.
func (m *MMU) StepHBlankDMA() {
	if m.hdma5&0x80 != 0 {
		return
	}
	m.copyVRAMBlock()
}

func (m *MMU) copyVRAMBlock() {
	source := m.dmaSource & 0xFFF0
	dest := m.dmaDest&0x1FF0 | 0x8000
	for i := range uint16(16) {
		m.videoWrite(dest+i, m.Read(source+i))
	}
	m.dmaSource += 0x10
	m.dmaDest += 0x10
	// The block counter wrapping to 0xFF marks the transfer done: bit 7
	// doubles as the inactive flag on reads.
	m.hdma5--
}
