// Package gate enforces a minimum interval between check cycles.
package gate

import (
	"time"
)

// Decision is the outcome of a gate check.
type Decision struct {
	Proceed bool
	// Elapsed is the time since the last check; zero on first run.
	Elapsed time.Duration
	// Remaining is how long to wait before the next check may run.
	Remaining time.Duration
}

// Gate decides whether enough wall-clock time has passed since the last
// check. It never blocks.
type Gate struct {
	interval time.Duration
	now      func() time.Time
}

// New creates a Gate with the given minimum interval.
func New(interval time.Duration) *Gate {
	return &Gate{interval: interval, now: time.Now}
}

// SetClock overrides the wall clock (useful for testing).
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

// Interval returns the configured minimum interval.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// Check evaluates lastCheck, given in epoch seconds. Zero always proceeds.
func (g *Gate) Check(lastCheck float64) Decision {
	if lastCheck <= 0 {
		return Decision{Proceed: true}
	}

	last := time.Unix(0, int64(lastCheck*float64(time.Second)))
	elapsed := g.now().Sub(last)
	if elapsed < g.interval {
		return Decision{Elapsed: elapsed, Remaining: g.interval - elapsed}
	}
	return Decision{Proceed: true, Elapsed: elapsed}
}
