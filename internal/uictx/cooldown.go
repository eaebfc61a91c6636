package uictx

import (
	"sync"
	"time"
)

// Cooldowns remembers when each named action last ran.
type Cooldowns struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// NewCooldowns returns a tracker using the wall clock.
func NewCooldowns() *Cooldowns {
	return &Cooldowns{last: make(map[string]time.Time), now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (c *Cooldowns) WithClock(now func() time.Time) *Cooldowns {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

// Remaining returns how long action must still wait before it may run again.
// A zero result means the action is permitted and its timestamp is updated to
// now; a positive result leaves the tracker untouched.
func (c *Cooldowns) Remaining(action string, min time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if last, ok := c.last[action]; ok {
		if elapsed := now.Sub(last); elapsed < min {
			return min - elapsed
		}
	}
	c.last[action] = now
	return 0
}

// Reset forgets action so it may run immediately.
func (c *Cooldowns) Reset(action string) {
	c.mu.Lock()
	delete(c.last, action)
	c.mu.Unlock()
}

// Len returns the number of tracked actions.
func (c *Cooldowns) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.last)
}
