// Package render holds the terminal backend's drawing helpers: the log ring
// buffer that feeds the side panel and the half-block pixel mapping.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEntry is one captured log line.
type LogEntry struct {
	Time    time.Time
	Level   slog.Level
	Message string
}

// LogBuffer is a fixed-size ring of log entries, safe for concurrent use.
// The slog handler writes from whatever goroutine logs; the render loop
// reads.
type LogBuffer struct {
	mu    sync.RWMutex
	ring  []LogEntry
	head  int // next write position
	count int
}

func NewLogBuffer(size int) *LogBuffer {
	return &LogBuffer{ring: make([]LogEntry, size)}
}

// Add inserts an entry, evicting the oldest once the ring is full.
func (lb *LogBuffer) Add(entry LogEntry) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.ring[lb.head] = entry
	lb.head = (lb.head + 1) % len(lb.ring)
	if lb.count < len(lb.ring) {
		lb.count++
	}
}

// GetRecent returns up to maxCount entries, newest first.
func (lb *LogBuffer) GetRecent(maxCount int) []LogEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	n := lb.count
	if maxCount > 0 && maxCount < n {
		n = maxCount
	}
	if n == 0 {
		return nil
	}

	out := make([]LogEntry, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, lb.ring[(lb.head-i+len(lb.ring))%len(lb.ring)])
	}
	return out
}

// Clear discards all entries.
func (lb *LogBuffer) Clear() {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.head = 0
	lb.count = 0
}

// LogBufferHandler is a slog.Handler that captures records into a LogBuffer
// instead of writing to a stream, keeping log output off the terminal the
// backend is drawing into.
type LogBufferHandler struct {
	buffer *LogBuffer
	level  slog.Level
}

func NewLogBufferHandler(buffer *LogBuffer, level slog.Level) *LogBufferHandler {
	return &LogBufferHandler{
		buffer: buffer,
		level:  level,
	}
}

func (h *LogBufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *LogBufferHandler) Handle(_ context.Context, record slog.Record) error {
	// Fold attributes into the message text; the panel renders plain lines.
	var b strings.Builder
	b.WriteString(record.Message)
	record.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})

	h.buffer.Add(LogEntry{
		Time:    record.Time,
		Level:   record.Level,
		Message: b.String(),
	})
	return nil
}

// WithAttrs returns the handler unchanged. Handler-level attributes are not
// tracked; call-site attributes are folded into the message in Handle.
func (h *LogBufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

// WithGroup returns the handler unchanged, groups are not tracked.
func (h *LogBufferHandler) WithGroup(name string) slog.Handler {
	return h
}

var levelTags = map[slog.Level]string{
	slog.LevelDebug: "DBG",
	slog.LevelInfo:  "INF",
	slog.LevelWarn:  "WRN",
	slog.LevelError: "ERR",
}

// FormatLogEntry renders an entry as a single panel line.
func FormatLogEntry(entry LogEntry) string {
	tag, ok := levelTags[entry.Level]
	if !ok {
		tag = "???"
	}
	return fmt.Sprintf("%s [%s] %s", entry.Time.Format("15:04:05"), tag, entry.Message)
}
