package cart

import "time"

const (
	romBankSize = 0x4000
	ramBankSize = 0x2000
)

// MBC is the bank-controller contract. Addresses are bus addresses:
// ROM space 0x0000-0x7FFF (writes drive the bank latches), external RAM
// space 0xA000-0xBFFF.
type MBC interface {
	// Read reads a byte from the specified address.
	Read(addr uint16) uint8
	// Write writes a byte to the specified address. In the ROM range this
	// operates control latches instead of storing data.
	Write(addr uint16, value uint8)
	// RAM returns the live external RAM backing slice (empty when absent).
	RAM() []uint8
}

// romRead reads the image byte at offset, wrapping offsets that exceed the
// actual image size. The wrap is per byte, not per bank, so images that are
// not a whole number of banks still read in range.
func romRead(rom []uint8, offset uint32) uint8 {
	if len(rom) == 0 {
		return 0xFF
	}
	return rom[offset%uint32(len(rom))]
}

// ramOffset computes the byte offset of a RAM bank, wrapping banks that
// exceed the actual RAM size.
func ramOffset(ram []uint8, bank uint32) uint32 {
	offset := bank * ramBankSize
	if len(ram) > 0 && offset >= uint32(len(ram)) {
		offset %= uint32(len(ram))
	}
	return offset
}

// NoMBC represents cartridges with no banking circuit: the first 32KB of
// ROM are mapped flat. A small static RAM may still be present (ROM+RAM
// types).
type NoMBC struct {
	rom []uint8
	ram []uint8
}

// NewNoMBC creates a controller-less mapping over the image.
func NewNoMBC(romData []uint8, ramSize int) *NoMBC {
	return &NoMBC{
		rom: romData,
		ram: make([]uint8, ramSize),
	}
}

func (m *NoMBC) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x7FFF:
		if int(addr) < len(m.rom) {
			return m.rom[addr]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		offset := int(addr - 0xA000)
		if offset < len(m.ram) {
			return m.ram[offset]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (m *NoMBC) Write(addr uint16, value uint8) {
	if addr >= 0xA000 && addr <= 0xBFFF {
		offset := int(addr - 0xA000)
		if offset < len(m.ram) {
			m.ram[offset] = value
		}
	}
	// ROM range writes have no latches to operate here.
}

func (m *NoMBC) RAM() []uint8 {
	return m.ram
}

// MBC1 is the first and most common bank controller:
//   - up to 2MB ROM (125 usable 16KB banks) and 32KB RAM (4 8KB banks)
//   - 0x0000-0x1FFF: RAM enable (low nibble 0x0A enables)
//   - 0x2000-0x3FFF: ROM bank low 5 bits (0 selects 1)
//   - 0x4000-0x5FFF: 2-bit secondary latch (ROM high bits or RAM bank)
//   - 0x6000-0x7FFF: banking mode; mode 1 applies the secondary latch to
//     the fixed ROM window and to RAM instead of the switchable window
type MBC1 struct {
	rom        []uint8
	ram        []uint8
	bankLow    uint8 // 5-bit latch, never 0
	bankHigh   uint8 // 2-bit latch
	mode       uint8
	ramEnabled bool
}

// NewMBC1 creates a new MBC1 controller.
func NewMBC1(romData []uint8, ramSize int) *MBC1 {
	return &MBC1{
		rom:     romData,
		ram:     make([]uint8, ramSize),
		bankLow: 1,
	}
}

// effective bank numbers derived from the two latches and the mode bit
func (m *MBC1) fixedBank() uint32 {
	if m.mode == 1 {
		return uint32(m.bankHigh) << 5
	}
	return 0
}

func (m *MBC1) switchableBank() uint32 {
	return uint32(m.bankHigh)<<5 | uint32(m.bankLow)
}

func (m *MBC1) ramBank() uint32 {
	if m.mode == 1 {
		return uint32(m.bankHigh)
	}
	return 0
}

func (m *MBC1) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return romRead(m.rom, m.fixedBank()*romBankSize+uint32(addr))
	case addr >= 0x4000 && addr <= 0x7FFF:
		return romRead(m.rom, m.switchableBank()*romBankSize+uint32(addr-0x4000))
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := ramOffset(m.ram, m.ramBank())
		return m.ram[(offset+uint32(addr-0xA000))%uint32(len(m.ram))]
	default:
		return 0xFF
	}
}

func (m *MBC1) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr >= 0x2000 && addr <= 0x3FFF:
		bank := value & 0x1F
		if bank == 0 {
			bank = 1
		}
		m.bankLow = bank
	case addr >= 0x4000 && addr <= 0x5FFF:
		m.bankHigh = value & 0x03
	case addr >= 0x6000 && addr <= 0x7FFF:
		m.mode = value & 0x01
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		offset := ramOffset(m.ram, m.ramBank())
		m.ram[(offset+uint32(addr-0xA000))%uint32(len(m.ram))] = value
	}
}

func (m *MBC1) RAM() []uint8 {
	return m.ram
}

// MBC2 is a simpler controller with 512x4 bits of built-in RAM:
//   - up to 256KB ROM (16 banks)
//   - one write range 0x0000-0x3FFF shared by both latches: address bit 8
//     clear operates RAM enable, set operates the 4-bit ROM bank latch
//   - RAM values occupy the low nibble only; reads return the high nibble set
type MBC2 struct {
	rom        []uint8
	ram        []uint8 // 512 nibble cells
	romBank    uint8
	ramEnabled bool
}

// NewMBC2 creates a new MBC2 controller.
func NewMBC2(romData []uint8) *MBC2 {
	return &MBC2{
		rom:     romData,
		ram:     make([]uint8, 512),
		romBank: 1,
	}
}

func (m *MBC2) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return romRead(m.rom, uint32(addr))
	case addr >= 0x4000 && addr <= 0x7FFF:
		return romRead(m.rom, uint32(m.romBank)*romBankSize+uint32(addr-0x4000))
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		// 512 cells, echoed through the rest of the RAM window.
		return m.ram[(addr-0xA000)&0x1FF] | 0xF0
	default:
		return 0xFF
	}
}

func (m *MBC2) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x3FFF:
		if addr&0x0100 == 0 {
			m.ramEnabled = (value & 0x0F) == 0x0A
		} else {
			bank := value & 0x0F
			if bank == 0 {
				bank = 1
			}
			m.romBank = bank
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		m.ram[(addr-0xA000)&0x1FF] = value & 0x0F
	}
}

func (m *MBC2) RAM() []uint8 {
	return m.ram
}

// Clock abstracts the wall clock for the MBC3 real-time counter so tests
// can inject a fixed or stepped time source.
type Clock interface {
	Now() time.Time
}

type systemClockFunc func() time.Time

func (s systemClockFunc) Now() time.Time {
	return s()
}

// RTC register indices within the MBC3 register file (selected by writing
// 0x08-0x0C to the RAM bank latch).
const (
	rtcSeconds = iota
	rtcMinutes
	rtcHours
	rtcDaysLow
	rtcDaysHigh // bit 0: day bit 8, bit 6: halt, bit 7: day carry
)

// MBC3 adds a battery-backed real-time clock to MBC1-style banking:
//   - up to 2MB ROM (7-bit bank latch, 0 selects 1), 32KB RAM
//   - RAM bank latch values 0x08-0x0C select an RTC register instead
//   - writing 0x00 then 0x01 to 0x6000-0x7FFF latches the clock into the
//     visible registers
type MBC3 struct {
	rom        []uint8
	ram        []uint8
	rtc        [5]uint8
	rtcBase    time.Time
	clock      Clock
	romBank    uint8
	ramBank    uint8 // raw latch value; 0x08-0x0C select RTC registers
	latchState uint8
	ramEnabled bool
	hasRTC     bool
}

// NewMBC3 creates a new MBC3 controller. A nil clock defaults to the system
// clock when the cartridge has an RTC.
func NewMBC3(romData []uint8, ramSize int, hasRTC bool, clock Clock) *MBC3 {
	if clock == nil {
		clock = systemClockFunc(time.Now)
	}

	return &MBC3{
		rom:     romData,
		ram:     make([]uint8, ramSize),
		romBank: 1,
		clock:   clock,
		rtcBase: clock.Now(),
		hasRTC:  hasRTC,
	}
}

func (m *MBC3) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return romRead(m.rom, uint32(addr))
	case addr >= 0x4000 && addr <= 0x7FFF:
		return romRead(m.rom, uint32(m.romBank)*romBankSize+uint32(addr-0x4000))
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		if m.ramBank <= 0x03 {
			if len(m.ram) == 0 {
				return 0xFF
			}
			offset := ramOffset(m.ram, uint32(m.ramBank))
			return m.ram[(offset+uint32(addr-0xA000))%uint32(len(m.ram))]
		}
		if m.hasRTC && m.ramBank >= 0x08 && m.ramBank <= 0x0C {
			return m.rtc[m.ramBank-0x08]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (m *MBC3) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr >= 0x2000 && addr <= 0x3FFF:
		bank := value & 0x7F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case addr >= 0x4000 && addr <= 0x5FFF:
		m.ramBank = value & 0x0F
	case addr >= 0x6000 && addr <= 0x7FFF:
		// 0x00 followed by 0x01 latches the running clock.
		if m.latchState == 0x00 && value == 0x01 && m.hasRTC {
			m.latchClock()
		}
		m.latchState = value
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		if m.ramBank <= 0x03 {
			if len(m.ram) == 0 {
				return
			}
			offset := ramOffset(m.ram, uint32(m.ramBank))
			m.ram[(offset+uint32(addr-0xA000))%uint32(len(m.ram))] = value
		} else if m.hasRTC && m.ramBank >= 0x08 && m.ramBank <= 0x0C {
			m.rtc[m.ramBank-0x08] = value
			// Writing a register re-bases the running clock on the new value.
			m.rtcBase = m.clock.Now()
		}
	}
}

// latchClock folds the wall-clock time elapsed since the last latch into
// the visible RTC registers.
func (m *MBC3) latchClock() {
	now := m.clock.Now()

	if m.rtc[rtcDaysHigh]&0x40 != 0 {
		// halted: time does not accumulate
		m.rtcBase = now
		return
	}

	elapsed := int64(now.Sub(m.rtcBase) / time.Second)
	if elapsed <= 0 {
		return
	}
	m.rtcBase = now

	days := int64(m.rtc[rtcDaysLow]) | int64(m.rtc[rtcDaysHigh]&0x01)<<8
	total := elapsed +
		int64(m.rtc[rtcSeconds]) +
		int64(m.rtc[rtcMinutes])*60 +
		int64(m.rtc[rtcHours])*3600 +
		days*86400

	m.rtc[rtcSeconds] = uint8(total % 60)
	m.rtc[rtcMinutes] = uint8(total / 60 % 60)
	m.rtc[rtcHours] = uint8(total / 3600 % 24)

	days = total / 86400
	m.rtc[rtcDaysLow] = uint8(days)
	m.rtc[rtcDaysHigh] &^= 0x01
	m.rtc[rtcDaysHigh] |= uint8(days>>8) & 0x01
	if days > 0x1FF {
		m.rtc[rtcDaysHigh] |= 0x80 // day counter carry, sticky
	}
}

func (m *MBC3) RAM() []uint8 {
	return m.ram
}

// MBC5 is the late-generation controller with no banking quirks:
//   - up to 8MB ROM via a 9-bit bank latch split across two write windows;
//     bank 0 is directly selectable into the switchable window
//   - up to 128KB RAM (4-bit bank latch)
//   - rumble variants repurpose RAM latch bit 3 for the motor, halving the
//     addressable RAM banks
type MBC5 struct {
	rom        []uint8
	ram        []uint8
	romBank    uint16
	ramBank    uint8
	ramEnabled bool
	hasRumble  bool
}

// NewMBC5 creates a new MBC5 controller.
func NewMBC5(romData []uint8, hasRumble bool, ramSize int) *MBC5 {
	return &MBC5{
		rom:       romData,
		ram:       make([]uint8, ramSize),
		romBank:   1,
		hasRumble: hasRumble,
	}
}

func (m *MBC5) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return romRead(m.rom, uint32(addr))
	case addr >= 0x4000 && addr <= 0x7FFF:
		return romRead(m.rom, uint32(m.romBank)*romBankSize+uint32(addr-0x4000))
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		offset := ramOffset(m.ram, uint32(m.ramBank))
		return m.ram[(offset+uint32(addr-0xA000))%uint32(len(m.ram))]
	default:
		return 0xFF
	}
}

func (m *MBC5) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr >= 0x2000 && addr <= 0x2FFF:
		m.romBank = (m.romBank & 0x100) | uint16(value)
	case addr >= 0x3000 && addr <= 0x3FFF:
		m.romBank = (m.romBank & 0xFF) | (uint16(value&0x01) << 8)
	case addr >= 0x4000 && addr <= 0x5FFF:
		if m.hasRumble {
			// bit 3 drives the rumble motor, not the bank latch
			m.ramBank = value & 0x07
		} else {
			m.ramBank = value & 0x0F
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		offset := ramOffset(m.ram, uint32(m.ramBank))
		m.ram[(offset+uint32(addr-0xA000))%uint32(len(m.ram))] = value
	}
}

func (m *MBC5) RAM() []uint8 {
	return m.ram
}
