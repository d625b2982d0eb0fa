package testutil

import (
	"sync"
	"time"
)

// SteppingClock provides a thread-safe deterministic wall clock for tests.
//
// Every call to Now returns start + n*step and then advances n. With a zero
// step it is a frozen clock. It satisfies engine.Clock, and its Now method
// value fits audit.WithClock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	n     int64
}

// NewSteppingClock creates a clock whose first reading is start.
func NewSteppingClock(start time.Time, step time.Duration) *SteppingClock {
	return &SteppingClock{start: start.UTC(), step: step}
}

// NewFrozenClock creates a clock that always reads t.
func NewFrozenClock(t time.Time) *SteppingClock {
	return NewSteppingClock(t, 0)
}

// Now returns the current reading and advances the clock by one step.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// Ticks returns how many times Now has been called.
func (c *SteppingClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Reset rewinds the clock so the next reading is start again.
func (c *SteppingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
