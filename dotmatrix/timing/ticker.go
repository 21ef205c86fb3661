package timing

import "time"

// TickerLimiter paces frames off a time.Ticker. Ticks that arrive while the
// loop is busy are dropped by the runtime, so one slow frame does not cause
// a burst afterwards. Cruder than AdaptiveLimiter but fine for steady loads
// like the test patterns.
type TickerLimiter struct {
	ticker *time.Ticker
}

func NewTickerLimiter() *TickerLimiter {
	return &TickerLimiter{ticker: time.NewTicker(FrameDuration())}
}

func (t *TickerLimiter) WaitForNextFrame() {
	<-t.ticker.C
}

func (t *TickerLimiter) Reset() {
	t.ticker.Reset(FrameDuration())
}

// Stop releases the ticker. The limiter must not be used afterwards.
func (t *TickerLimiter) Stop() {
	t.ticker.Stop()
}
