package timing

import (
	"log/slog"
	"time"
)

// spinWindow is the stretch before the deadline that is busy-waited instead
// of slept: sleeping has roughly millisecond granularity on most platforms.
const spinWindow = 2 * time.Millisecond

// AdaptiveLimiter paces frames against an absolute schedule instead of a
// fixed per-frame sleep, so oversleeping one frame shortens the next wait
// rather than accumulating. Falling more than a few frames behind restarts
// the schedule instead of fast-forwarding through the backlog.
type AdaptiveLimiter struct {
	frameTime time.Duration
	deadline  time.Time
	frames    int64
}

func NewAdaptiveLimiter() *AdaptiveLimiter {
	return &AdaptiveLimiter{
		frameTime: FrameDuration(),
		deadline:  time.Now(),
	}
}

func (a *AdaptiveLimiter) WaitForNextFrame() {
	now := time.Now()
	remaining := a.deadline.Sub(now)

	switch {
	case remaining > spinWindow:
		time.Sleep(remaining - time.Millisecond)
		a.spinUntilDeadline()
	case remaining > 0:
		a.spinUntilDeadline()
	case remaining < -5*time.Millisecond:
		// Too far behind to catch up frame by frame.
		a.deadline = now
	}

	a.deadline = a.deadline.Add(a.frameTime)
	a.frames++

	// Once a second, nudge the schedule toward the wall clock so small
	// systematic errors do not build into visible stutter.
	if a.frames%60 == 0 {
		drift := time.Since(a.deadline)
		if drift.Abs() > 10*time.Millisecond {
			a.deadline = a.deadline.Add(drift / 10)
			slog.Debug("frame pacing drift", "drift_ms", drift.Milliseconds())
		}
	}
}

func (a *AdaptiveLimiter) spinUntilDeadline() {
	for time.Now().Before(a.deadline) {
	}
}

func (a *AdaptiveLimiter) Reset() {
	a.deadline = time.Now()
	a.frames = 0
}
