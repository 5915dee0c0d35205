package app

import "time"

// Clock provides the current wall-clock time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// Now strips the monotonic reading so time spent suspended is counted.
func (realClock) Now() time.Time {
	return time.Now().Round(0)
}

// SessionClock computes elapsed quiz time as prior elapsed plus the wall-clock
// delta since the session (re)started. Every read recomputes from the clock, so
// missed polls never under-count.
type SessionClock struct {
	clock  Clock
	start  time.Time
	prior  time.Duration
	last   time.Duration
	frozen bool
}

// NewSessionClock starts a clock at now, carrying prior elapsed time forward.
func NewSessionClock(clock Clock, prior time.Duration) *SessionClock {
	if clock == nil {
		clock = realClock{}
	}
	if prior < 0 {
		prior = 0
	}
	return &SessionClock{clock: clock, start: clock.Now(), prior: prior, last: prior}
}

// Elapsed returns the current elapsed time. It never decreases, even if the
// wall clock is set backwards.
func (c *SessionClock) Elapsed() time.Duration {
	if c.frozen {
		return c.last
	}
	current := c.prior + c.clock.Now().Sub(c.start)
	if current > c.last {
		c.last = current
	}
	return c.last
}

// ElapsedSeconds returns whole elapsed seconds.
func (c *SessionClock) ElapsedSeconds() int {
	return int(c.Elapsed() / time.Second)
}

// Remaining returns max(0, allotted - elapsed).
func (c *SessionClock) Remaining(allotted time.Duration) time.Duration {
	remaining := allotted - c.Elapsed()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Freeze stops the clock at its current reading.
func (c *SessionClock) Freeze() time.Duration {
	elapsed := c.Elapsed()
	c.frozen = true
	return elapsed
}
