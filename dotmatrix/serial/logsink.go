// Package serial terminates the link port in a diagnostic sink. There is no
// peer: transfers complete on the internal clock, shift in 0xFF and raise
// the serial interrupt, which is exactly what test programs that report
// results over the link expect.
package serial

import (
	"io"
	"log/slog"

	"github.com/dmgcore/go-dotmatrix/dotmatrix/addr"
	"github.com/dmgcore/go-dotmatrix/dotmatrix/bit"
)

// byteTime is the transfer duration on the internal clock: 8 bits at the
// 8192 Hz bit clock, in machine cycles.
const byteTime = 4096

// LogSink is a serial device that logs outgoing bytes as text. Handy for
// test programs that print their verdict to the link port.
type LogSink struct {
	irqHandler     func()
	sb, sc         byte
	transferActive bool
	countdown      int

	logger *slog.Logger
	echo   io.Writer

	// Outgoing bytes buffer until a line break for readable output.
	line []byte
}

type LogSinkOption func(*LogSink)

// WithLogger routes the sink's output through the given logger instead of
// the default one.
func WithLogger(logger *slog.Logger) LogSinkOption {
	return func(s *LogSink) { s.logger = logger }
}

// WithEcho additionally copies every outgoing byte to w as it is sent,
// unbuffered.
func WithEcho(w io.Writer) LogSinkOption {
	return func(s *LogSink) { s.echo = w }
}

// NewLogSink creates a logging serial device. The passed function is called
// when a transfer completes and should be wired to request the serial
// interrupt.
func NewLogSink(irq func(), opts ...LogSinkOption) *LogSink {
	s := &LogSink{
		irqHandler: irq,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LogSink) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		s.sb = value
	case addr.SC:
		s.sc = value
		s.maybeStartTransfer()
	}
}

func (s *LogSink) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return s.sb
	case addr.SC:
		// Bits 1-6 are unwired and read as 1.
		return s.sc | 0x7E
	}
	return 0xFF
}

// Advance moves an active transfer forward by the given machine cycles,
// completing it once the byte time has elapsed.
func (s *LogSink) Advance(cycles int) {
	if !s.transferActive {
		return
	}
	s.countdown -= cycles
	if s.countdown <= 0 {
		s.completeTransfer()
	}
}

// Flush logs any buffered partial line. Called on shutdown so trailing
// output without a line break still shows up.
func (s *LogSink) Flush() {
	if len(s.line) > 0 {
		s.logger.Info("serial", "line", string(s.line))
		s.line = s.line[:0]
	}
}

func (s *LogSink) maybeStartTransfer() {
	if s.transferActive {
		return
	}
	// A transfer starts when bit 7 (start) and bit 0 (internal clock) of SC
	// are set. With external clock selected nothing drives the line, so the
	// transfer never completes; ignore it like the hardware would.
	if !bit.IsSet(7, s.sc) || !bit.IsSet(0, s.sc) {
		return
	}

	b := s.sb
	if s.echo != nil {
		s.echo.Write([]byte{b})
	}
	if b == 0 || b == '\n' || b == '\r' {
		s.Flush()
	} else {
		s.line = append(s.line, b)
	}

	s.transferActive = true
	s.countdown = byteTime
}

func (s *LogSink) completeTransfer() {
	// No peer: the shifted-in byte is all ones.
	s.sb = 0xFF
	s.sc = bit.Clear(7, s.sc)
	s.transferActive = false
	s.countdown = 0
	if s.irqHandler != nil {
		s.irqHandler()
	}
}
