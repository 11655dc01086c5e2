// Package clock provides the session-relative millisecond clock every
// recorded timestamp is expressed against.
package clock

import (
	"sync"
	"time"
)

// Clock measures elapsed time since a fixed session start. The time source
// is injectable so tests can drive it deterministically.
type Clock struct {
	mu    sync.Mutex
	start time.Time
	now   func() time.Time
}

// New anchors a clock at now(). A nil now falls back to time.Now.
func New(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{start: now(), now: now}
}

// Restart re-anchors the clock at the current time. The session calls this
// when the subject actually begins, so elapsed times measure the run, not
// process uptime.
func (c *Clock) Restart() {
	c.mu.Lock()
	c.start = c.now()
	c.mu.Unlock()
}

// Start returns the session start timestamp.
func (c *Clock) Start() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start
}

// StartMS returns the session start as Unix milliseconds, the form the
// submission payload carries.
func (c *Clock) StartMS() int64 {
	return c.Start().UnixMilli()
}

// ElapsedMS returns milliseconds since session start.
func (c *Clock) ElapsedMS() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Sub(c.start).Milliseconds()
}
