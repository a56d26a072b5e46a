package engine

import (
	"sync/atomic"
	"time"
)

// Clock is the store's monotonic logical clock.
//
// Every published snapshot is stamped with a strictly increasing seq number
// from this clock, so observers (and the debug recorder) can order snapshots
// without relying on wall-clock time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// In practice only the store's writer calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// NowFunc supplies wall-clock time for notification timestamps.
type NowFunc func() time.Time

// FixedNow returns a NowFunc that always reports t. Used by tests and the
// conformance harness to keep timestamps deterministic.
func FixedNow(t time.Time) NowFunc {
	return func() time.Time { return t }
}
