package addr

// gpu registers
const (
	// LCD Control register.
	LCDC uint16 = 0xFF40
	// LCDC Status register.
	STAT uint16 = 0xFF41
	// Scroll Y (SCY) register.
	SCY uint16 = 0xFF42
	// Scroll X (SCX) register.
	SCX uint16 = 0xFF43
	// LCDC Y-Coordinate (readonly) register.
	LY uint16 = 0xFF44
	// LY Compare register.
	LYC uint16 = 0xFF45
	// DMA Transfer and Start register.
	DMA uint16 = 0xFF46
	// BG Palette register.
	BGP uint16 = 0xFF47
	// Object Palette 0 register.
	OBP0 uint16 = 0xFF48
	// Object Palette 1 register.
	OBP1 uint16 = 0xFF49
	// Window Y Position register.
	WY uint16 = 0xFF4A
	// Window X Position register.
	WX uint16 = 0xFF4B
)

// color-mode (CGB) registers
const (
	// KEY1 prepares and reports the double-speed switch.
	// Bit 0 (writable) arms the switch, bit 7 (readonly) is the current speed.
	KEY1 uint16 = 0xFF4D
	// VBK selects the active video RAM bank (bit 0).
	VBK uint16 = 0xFF4F
	// BOOT unmaps the bootrom overlay when written; irreversible until reset.
	BOOT uint16 = 0xFF50
	// HDMA1..HDMA4 latch the VRAM DMA source (high/low) and destination (high/low).
	HDMA1 uint16 = 0xFF51
	HDMA2 uint16 = 0xFF52
	HDMA3 uint16 = 0xFF53
	HDMA4 uint16 = 0xFF54
	// HDMA5 starts a VRAM DMA transfer: bit 7 clear runs it at once,
	// bit 7 set schedules 16 bytes per H-blank. Reads report remaining blocks.
	HDMA5 uint16 = 0xFF55
	// BGPI indexes background palette RAM; bit 7 enables auto-increment.
	BGPI uint16 = 0xFF68
	// BGPD reads/writes the background palette byte selected by BGPI.
	BGPD uint16 = 0xFF69
	// OBPI indexes object palette RAM; bit 7 enables auto-increment.
	OBPI uint16 = 0xFF6A
	// OBPD reads/writes the object palette byte selected by OBPI.
	OBPD uint16 = 0xFF6B
	// SVBK selects the work RAM bank at 0xD000 (1-7, 0 acts as 1).
	SVBK uint16 = 0xFF70
)

// Audio register window - APU (Audio Processing Unit).
// Sound synthesis is not emulated; the window is register storage so that
// software polling these registers keeps running.
const (
	AudioStart uint16 = 0xFF10
	AudioEnd   uint16 = 0xFF3F

	// Channel 1 (pulse + sweep)
	NR10 uint16 = 0xFF10
	NR11 uint16 = 0xFF11
	NR12 uint16 = 0xFF12
	NR13 uint16 = 0xFF13
	NR14 uint16 = 0xFF14

	// Channel 2 (pulse)
	NR21 uint16 = 0xFF16
	NR22 uint16 = 0xFF17
	NR23 uint16 = 0xFF18
	NR24 uint16 = 0xFF19

	// Channel 3 (wave)
	NR30 uint16 = 0xFF1A
	NR31 uint16 = 0xFF1B
	NR32 uint16 = 0xFF1C
	NR33 uint16 = 0xFF1D
	NR34 uint16 = 0xFF1E

	// Channel 4 (noise)
	NR41 uint16 = 0xFF20
	NR42 uint16 = 0xFF21
	NR43 uint16 = 0xFF22
	NR44 uint16 = 0xFF23

	// NR50 is the master volume / VIN panning register.
	NR50 uint16 = 0xFF24
	// NR51 is the channel panning register.
	NR51 uint16 = 0xFF25
	// NR52 is the master sound on/off and channel status register.
	NR52 uint16 = 0xFF26

	// Wave pattern RAM (32 samples, 4-bit each)
	WaveRAMStart uint16 = 0xFF30
	WaveRAMEnd   uint16 = 0xFF3F
)

// OAM (Object Attribute Memory) - sprite data
const (
	// OAMStart is the start of OAM memory (40 sprites * 4 bytes each)
	OAMStart uint16 = 0xFE00
	// OAMEnd is the end of OAM memory
	OAMEnd uint16 = 0xFE9F
)

// video RAM
const (
	// VRAMStart is the start of video RAM
	VRAMStart uint16 = 0x8000
	// VRAMEnd is the end of video RAM
	VRAMEnd uint16 = 0x9FFF
)

// tile data and tile maps
const (
	// TileData0 is the start of unsigned tile data (tiles 0-255)
	TileData0 uint16 = 0x8000
	// TileData1 is the start of signed tile data region (tiles -128 to -1)
	TileData1 uint16 = 0x8800
	// TileData2 is the continuation of signed tile data (tiles 0-127)
	TileData2 uint16 = 0x9000

	// TileMap0 is background/window tile map 0
	TileMap0 uint16 = 0x9800
	// TileMap1 is background/window tile map 1
	TileMap1 uint16 = 0x9C00
)

// interrupts
const (
	// IF is the address for the Interrupt Flags register.
	IF uint16 = 0xFF0F
	// IE is the address for the Interrupt Enable register.
	IE uint16 = 0xFFFF
)

// joypad
const (
	// P1 is used to read the Joypad state.
	P1 uint16 = 0xFF00
)

// serial I/O
const (
	// SB (Serial transfer data, 0xFF01)
	//
	// Holds the 8-bit data to be transmitted. During a transfer, bits shift out MSB-first
	// on SO and incoming bits shift in from SI. After completion, SB contains the received
	// byte from the peer (typically 0xFF when no peer is connected).
	SB uint16 = 0xFF01
	// SC (Serial transfer control, 0xFF02)
	//  - Bit 7 (Start): Writing 1 starts an 8-bit transfer; hardware clears to 0 when done.
	//  - Bit 0 (Clock): 1=internal clock (DMG master at ~8192 Hz bit clock), 0=external clock
	//    (peer provides 8 pulses).
	//  - On completion, the Serial interrupt (IF bit 3) is requested by hardware.
	SC uint16 = 0xFF02
)

// timers
const (
	// DIV is the divider register. Incremented 16384 times/s, writing to it resets it.
	DIV uint16 = 0xFF04
	// TIMA is the timer counter register. Generates an interrupt when it overflows.
	TIMA uint16 = 0xFF05
	// TMA is the timer modulo register. When TIMA overflows, this data will be loaded.
	TMA uint16 = 0xFF06
	// TAC is the timer control register. Used to start/stop and control the timer clock.
	TAC uint16 = 0xFF07
)

// Interrupt is an enum that represents one of the possible interrupts.
// The value is the interrupt's mask in the IE/IF registers; lower values
// have higher dispatch priority.
type Interrupt uint8

const (
	// VBlankInterrupt is fired when the GPU has completed a frame.
	VBlankInterrupt Interrupt = 1
	// LCDSTATInterrupt is fired based on one of the conditions in the LCDSTAT register.
	LCDSTATInterrupt Interrupt = 1 << 1
	// TimerInterrupt is fired when the timer register (TIMA) overflows (i.e. goes from 0xFF to 0x00).
	TimerInterrupt Interrupt = 1 << 2
	// SerialInterrupt is fired when a serial transfer has completed on the game link port.
	SerialInterrupt Interrupt = 1 << 3
	// JoypadInterrupt is fired when any of the keypad inputs goes from high to low.
	JoypadInterrupt Interrupt = 1 << 4
)
