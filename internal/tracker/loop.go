package tracker

import (
	"context"
	"log/slog"
	"time"
)

// Cycle runs one check.
type Cycle interface {
	Run(ctx context.Context) (Result, error)
}

// Loop runs a cycle immediately and then again every interval, measured from
// the end of the previous cycle.
type Loop struct {
	cycle    Cycle
	interval time.Duration
	log      *slog.Logger
}

// NewLoop creates a Loop.
func NewLoop(c Cycle, interval time.Duration, log *slog.Logger) *Loop {
	return &Loop{cycle: c, interval: interval, log: log}
}

// Run blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	l.log.Info("starting loop", "interval", l.interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Info("loop stopped")
			return
		case <-timer.C:
			if _, err := l.cycle.Run(ctx); err != nil && ctx.Err() == nil {
				l.log.Error("check cycle", "error", err)
			}
			if ctx.Err() != nil {
				l.log.Info("loop stopped")
				return
			}
			l.log.Debug("next check scheduled", "in", l.interval)
			timer.Reset(l.interval)
		}
	}
}
