package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrameDuration(t *testing.T) {
	// 70224 cycles at 4194304 Hz: 16.742706... ms, truncated to whole
	// nanoseconds.
	assert.Equal(t, 16742706*time.Nanosecond, FrameDuration())
}

func TestNoOpLimiterReturnsImmediately(t *testing.T) {
	l := NewNoOpLimiter()

	start := time.Now()
	for range 100 {
		l.WaitForNextFrame()
	}
	l.Reset()

	assert.Less(t, time.Since(start), time.Second)
}
