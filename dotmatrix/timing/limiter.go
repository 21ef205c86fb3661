// Package timing paces the frame loop. The machine itself runs as fast as
// the host allows; a Limiter installed by the frontend decides how often
// frames are allowed to complete.
package timing

import "time"

// Hardware rates: the clock runs at 4194304 Hz and one LCD refresh takes
// 70224 cycles, which works out to roughly 59.73 frames per second.
const (
	CPUFrequency   = 4194304
	CyclesPerFrame = 70224
)

// FrameDuration is the wall-clock length of one hardware frame.
func FrameDuration() time.Duration {
	return time.Duration(CyclesPerFrame) * time.Second / CPUFrequency
}

// Limiter blocks the frame loop until the next frame is due.
type Limiter interface {
	// WaitForNextFrame blocks until the next frame may start. It returns
	// immediately when the loop is already behind schedule.
	WaitForNextFrame()

	// Reset forgets accumulated schedule state, for resuming after a pause.
	Reset()
}

// NewNoOpLimiter returns a limiter that never waits. It is the machine
// default, used for tests and headless runs.
func NewNoOpLimiter() Limiter {
	return noOpLimiter{}
}

type noOpLimiter struct{}

func (noOpLimiter) WaitForNextFrame() {}
func (noOpLimiter) Reset()            {}
