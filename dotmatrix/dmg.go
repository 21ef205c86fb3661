package dotmatrix

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/addr"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/audio"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/cart"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/cpu"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/debug"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/input/action"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/interrupt"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/memory"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/serial"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/timing"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/video"
)

// snapshotBytes is how much memory ExtractDebugData captures around PC for
// the disassembly panel.
const snapshotBytes = 200

// audioRegs adapts the sound unit's unmasked register view to the debug
// extractors. Bus reads apply the hardware read masks, which hide the
// frequency registers; the debug views want the programmed values.
type audioRegs struct{ apu *audio.APU }

func (a audioRegs) Read(address uint16) byte { return a.apu.PeekRegister(address) }

// DMG is the assembled machine: processor, bus, picture unit and serial
// port stepped together in lockstep. One call to RunUntilFrame produces one
// video frame.
type DMG struct {
	cpu    *cpu.CPU
	gpu    *video.GPU
	mmu    *memory.MMU
	cart   *cart.Cartridge
	serial *serial.LogSink

	limiter timing.Limiter

	frameCount       uint64
	instructionCount uint64
	cycleCount       uint64

	// Completion detection for unattended runs: the machine is considered
	// done when PC sits at the same address for minLoopCount consecutive
	// frame boundaries, or after maxFrames frames.
	maxFrames    uint64
	minLoopCount int
	lastFramePC  uint16
	samePCFrames int
}

type config struct {
	bootrom []byte
	echo    io.Writer
}

// Option configures machine construction.
type Option func(*config)

// WithBootROM maps a boot image over the start of the address space, so
// execution begins at 0x0000 with cleared registers instead of the post-boot
// state.
func WithBootROM(data []byte) Option {
	return func(c *config) { c.bootrom = data }
}

// WithSerialEcho copies bytes sent to the link port to w as they arrive,
// in addition to the line-buffered log. Test programs report through the
// link port, so this surfaces their output on a terminal.
func WithSerialEcho(w io.Writer) Option {
	return func(c *config) { c.echo = w }
}

// New assembles a machine around the given ROM image.
func New(rom []byte, opts ...Option) (*DMG, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	card, err := cart.New(rom)
	if err != nil {
		return nil, fmt.Errorf("loading cartridge: %w", err)
	}

	colorMode := card.CGB()
	irq := interrupt.NewController()
	mmu := memory.New(card, irq, colorMode)
	gpu := video.NewGpu(irq, colorMode)
	mmu.AttachVideo(gpu)
	gpu.HBlankHook = mmu.StepHBlankDMA

	var sinkOpts []serial.LogSinkOption
	if cfg.echo != nil {
		sinkOpts = append(sinkOpts, serial.WithEcho(cfg.echo))
	}
	sink := serial.NewLogSink(func() { irq.Request(addr.SerialInterrupt) }, sinkOpts...)
	mmu.SetSerial(sink)

	d := &DMG{
		cpu:     cpu.New(mmu, irq, colorMode),
		gpu:     gpu,
		mmu:     mmu,
		cart:    card,
		serial:  sink,
		limiter: timing.NewNoOpLimiter(),
	}

	if cfg.bootrom != nil {
		if err := mmu.LoadBootROM(cfg.bootrom); err != nil {
			return nil, err
		}
		d.cpu.ResetForBoot()
	} else {
		d.seedPostBootState()
	}

	return d, nil
}

// NewWithFile assembles a machine around the ROM at the given path.
func NewWithFile(path string, opts ...Option) (*DMG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	d, err := New(data, opts...)
	if err != nil {
		return nil, err
	}

	slog.Info("Loaded ROM",
		"path", path,
		"bytes", len(data),
		"title", d.cart.Title(),
		"type", d.cart.Type(),
		"color", d.cart.CGB())
	return d, nil
}

// seedPostBootState writes the register values the boot code leaves behind,
// for direct starts without a boot image. The CPU constructor covers the
// register file; this covers the bus side.
func (d *DMG) seedPostBootState() {
	d.mmu.Write(addr.LCDC, 0x91)
	d.mmu.Write(addr.BGP, 0xFC)
	d.mmu.Write(addr.OBP0, 0xFF)
	d.mmu.Write(addr.OBP1, 0xFF)
	d.mmu.Write(addr.IF, 0xE1)
	d.mmu.SetTimerSeed(0xABCC)
}

// RunUntilFrame steps the machine until the picture unit completes a frame,
// then applies the frame limiter. With the display disabled it runs a
// frame's worth of cycles instead, so callers keep their pacing.
func (d *DMG) RunUntilFrame() error {
	frameCycles := 0
	for {
		cycles, err := d.cpu.Step()
		if err != nil {
			return err
		}
		d.instructionCount++
		d.cycleCount += uint64(cycles)

		d.mmu.Advance(cycles)

		// In double speed the processor clock doubles while the picture
		// unit keeps its pace, so it sees half the cycles.
		if d.mmu.DoubleSpeed() {
			cycles /= 2
		}
		frameCycles += cycles
		if d.gpu.Advance(cycles) || frameCycles >= timing.CyclesPerFrame {
			break
		}
	}

	d.frameCount++
	d.limiter.WaitForNextFrame()
	return nil
}

// StepInstruction executes exactly one instruction and moves the rest of the
// machine along with it. Used for debugger-style stepping while paused.
func (d *DMG) StepInstruction() error {
	cycles, err := d.cpu.Step()
	if err != nil {
		return err
	}
	d.instructionCount++
	d.cycleCount += uint64(cycles)

	d.mmu.Advance(cycles)
	if d.mmu.DoubleSpeed() {
		cycles /= 2
	}
	d.gpu.Advance(cycles)
	return nil
}

// ConfigureCompletionDetection bounds RunUntilComplete: stop after maxFrames
// frames (0 leaves the count unbounded), or once PC has been sampled at the
// same address for minLoopCount consecutive frame boundaries (0 disables
// loop detection).
func (d *DMG) ConfigureCompletionDetection(maxFrames uint64, minLoopCount int) {
	d.maxFrames = maxFrames
	d.minLoopCount = minLoopCount
}

// RunUntilComplete runs frames until a configured completion bound is hit.
// Test programs end in a tight self-jump, which the PC sampling picks up.
// With no bounds configured this returns only on an execution error.
func (d *DMG) RunUntilComplete() error {
	for {
		if err := d.RunUntilFrame(); err != nil {
			return err
		}

		if d.maxFrames > 0 && d.frameCount >= d.maxFrames {
			slog.Debug("Frame budget reached", "frames", d.frameCount)
			return nil
		}

		if d.minLoopCount > 0 {
			pc := d.cpu.GetPC()
			if pc == d.lastFramePC {
				d.samePCFrames++
				if d.samePCFrames >= d.minLoopCount {
					slog.Debug("Idle loop detected",
						"pc", fmt.Sprintf("0x%04X", pc),
						"frames", d.frameCount)
					return nil
				}
			} else {
				d.lastFramePC = pc
				d.samePCFrames = 1
			}
		}
	}
}

// GetCurrentFrame returns the picture unit's framebuffer. The buffer is
// reused across frames; callers copy what they need to keep.
func (d *DMG) GetCurrentFrame() *video.FrameBuffer {
	return d.gpu.GetFrameBuffer()
}

// HandleAction applies a pad input to the machine. Actions that do not map
// to a pad line are ignored; those belong to the surrounding run loop.
func (d *DMG) HandleAction(act action.Action, pressed bool) {
	key, ok := joypadKeyFor(act)
	if !ok {
		return
	}
	if pressed {
		d.mmu.HandleKeyPress(key)
	} else {
		d.mmu.HandleKeyRelease(key)
	}
}

func joypadKeyFor(act action.Action) (memory.JoypadKey, bool) {
	switch act {
	case action.GBButtonA:
		return memory.JoypadA, true
	case action.GBButtonB:
		return memory.JoypadB, true
	case action.GBButtonStart:
		return memory.JoypadStart, true
	case action.GBButtonSelect:
		return memory.JoypadSelect, true
	case action.GBDPadUp:
		return memory.JoypadUp, true
	case action.GBDPadDown:
		return memory.JoypadDown, true
	case action.GBDPadLeft:
		return memory.JoypadLeft, true
	case action.GBDPadRight:
		return memory.JoypadRight, true
	}
	return 0, false
}

// SetFrameLimiter replaces the frame pacing; nil restores free running.
func (d *DMG) SetFrameLimiter(limiter timing.Limiter) {
	if limiter == nil {
		limiter = timing.NewNoOpLimiter()
	}
	d.limiter = limiter
}

// ResetFrameTiming restarts the limiter schedule, used when resuming from a
// pause so the catch-up logic does not sprint.
func (d *DMG) ResetFrameTiming() {
	d.limiter.Reset()
}

// GetAudioProvider exposes the sound unit for backends that play or display
// audio state.
func (d *DMG) GetAudioProvider() audio.Provider {
	return d.mmu.AudioUnit()
}

// GetFrameCount returns the number of completed frames.
func (d *DMG) GetFrameCount() uint64 {
	return d.frameCount
}

// GetInstructionCount returns the number of executed instructions.
func (d *DMG) GetInstructionCount() uint64 {
	return d.instructionCount
}

// Title returns the cartridge title for window captions and save naming.
func (d *DMG) Title() string {
	return d.cart.Title()
}

// FlushSerial forces out any partial line held by the serial log.
func (d *DMG) FlushSerial() {
	if d.serial != nil {
		d.serial.Flush()
	}
}

// LoadSave restores battery-backed cartridge RAM from a save file. Carts
// without a battery ignore the call, and a missing file is not an error.
func (d *DMG) LoadSave(path string) error {
	if !d.cart.HasBattery() {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := d.cart.LoadRAM(data); err != nil {
		return err
	}
	slog.Info("Loaded save", "path", path, "bytes", len(data))
	return nil
}

// WriteSave dumps battery-backed cartridge RAM to a save file. Carts
// without a battery ignore the call.
func (d *DMG) WriteSave(path string) error {
	if !d.cart.HasBattery() {
		return nil
	}
	ram := d.cart.RAM()
	if len(ram) == 0 {
		return nil
	}
	if err := os.WriteFile(path, ram, 0o644); err != nil {
		return err
	}
	slog.Info("Wrote save", "path", path, "bytes", len(ram))
	return nil
}

// ExtractDebugData gathers a consistent view of the machine for the debug
// overlays: registers, sprite table, tile patterns and a window of memory
// ahead of PC. Returns nil on a machine that was never assembled.
func (d *DMG) ExtractDebugData() *debug.Data {
	if d.cpu == nil || d.mmu == nil || d.gpu == nil {
		return nil
	}

	pc := d.cpu.GetPC()

	// Window starting a little before PC so the disassembly shows context,
	// truncated at the end of the address space rather than wrapping.
	start := 0
	if int(pc) > snapshotBytes/2 {
		start = int(pc) - snapshotBytes/2
	}
	size := snapshotBytes
	if start+size > 0x10000 {
		size = 0x10000 - start
	}
	bytes := make([]uint8, size)
	for i := range bytes {
		bytes[i] = d.mmu.Read(uint16(start + i))
	}

	lcdc := d.mmu.Read(addr.LCDC)
	spriteHeight := 8
	if lcdc&0x04 != 0 {
		spriteHeight = 16
	}
	currentLine := int(d.mmu.Read(addr.LY))

	apu := d.mmu.AudioUnit()

	return &debug.Data{
		OAM:      debug.ExtractOAMData(d.mmu, currentLine, spriteHeight),
		VRAM:     debug.ExtractVRAMData(d.mmu),
		Palettes: debug.ExtractPaletteData(d.mmu),
		Audio:    debug.ExtractAudioData(audioRegs{apu}, apu),
		CPU: &debug.CPUState{
			A:      d.cpu.GetA(),
			F:      d.cpu.GetF(),
			B:      d.cpu.GetB(),
			C:      d.cpu.GetC(),
			D:      d.cpu.GetD(),
			E:      d.cpu.GetE(),
			H:      d.cpu.GetH(),
			L:      d.cpu.GetL(),
			SP:     d.cpu.GetSP(),
			PC:     pc,
			IME:    d.cpu.GetIME(),
			Cycles: d.cpu.GetCycles(),
		},
		Memory: &debug.MemorySnapshot{
			StartAddr: uint16(start),
			Bytes:     bytes,
		},
		InterruptEnable: d.cpu.GetIE(),
		InterruptFlags:  d.cpu.GetIF(),
	}
}
