package testutil

import (
	"sync"
	"time"
)

// FixedClock is a deterministic millisecond clock for tests.
//
// Each call to Now returns the current instant and then advances it by
// step, so successive events get distinct, predictable times. A zero step
// freezes the clock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu   sync.Mutex
	now  int64
	step int64
}

// NewFixedClock creates a clock starting at start (ms epoch) advancing by
// step on every Now.
func NewFixedClock(start int64, step time.Duration) *FixedClock {
	return &FixedClock{now: start, step: step.Milliseconds()}
}

// Now returns the current instant, then advances.
func (c *FixedClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now += c.step
	return now
}

// Peek returns the current instant without advancing.
func (c *FixedClock) Peek() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d.Milliseconds()
}

// Set moves the clock to ms.
func (c *FixedClock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = ms
}
