package testutil

import (
	"sync"
	"time"
)

// StepClock is a deterministic wall clock for tests.
//
// Each call to Now returns the start time advanced by one more step, so
// timestamps are strictly increasing and identical across runs. Pass
// clock.Now wherever an engine.NowFunc is expected.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	n     int64
}

// DefaultStart is the first instant returned by a StepClock created with a
// zero start time.
var DefaultStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewStepClock creates a clock whose first Now returns start. A zero start
// uses DefaultStart; a non-positive step uses one millisecond.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	if start.IsZero() {
		start = DefaultStart
	}
	if step <= 0 {
		step = time.Millisecond
	}
	return &StepClock{start: start, step: step}
}

// Now returns the next instant.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// Peek returns the instant the next Now call will return.
func (c *StepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(time.Duration(c.n) * c.step)
}

// Reset rewinds the clock to its start.
//
// Used for test reuse. After Reset(), Now returns the start time again.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
