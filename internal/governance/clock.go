package governance

import (
	"sync/atomic"
	"time"
)

// WallClock supplies the current wall-clock time. Timelock maturity, the
// heartbeat expiry, and the contingency cooldown are all computed by
// comparing a stored instant against Now() on each call; nothing in the core
// waits in-process.
//
// SystemClock is the production implementation. Tests inject a manual clock
// so every temporal edge case is reachable without sleeping.
type WallClock interface {
	Now() time.Time
}

// SystemClock returns a WallClock backed by time.Now.
func SystemClock() WallClock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SeqClock is a monotonic logical clock for journal event ordering.
// Wall time on events is informational; seq is the ordering authority, so
// the journal replays identically regardless of clock skew.
//
// Thread-safety: safe for concurrent use (atomic operations).
type SeqClock struct {
	seq atomic.Int64
}

// NewSeqClock creates a clock starting at 0; the first Next returns 1.
func NewSeqClock() *SeqClock {
	return &SeqClock{}
}

// NewSeqClockAt creates a clock resuming from a specific sequence number.
// Used when reopening a persisted journal.
func NewSeqClockAt(start int64) *SeqClock {
	c := &SeqClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *SeqClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *SeqClock) Current() int64 {
	return c.seq.Load()
}
