// Package storage defines the state persistence interface and its
// implementations.
package storage

import (
	"context"
	"log/slog"
	"time"

	"nyurban_tracker/internal/metrics"
	"nyurban_tracker/internal/model"
)

// Store persists the snapshot of the last successful check cycle.
type Store interface {
	// Load returns the stored state. A store that was never saved returns an
	// empty state and no error.
	Load(ctx context.Context) (model.State, error)
	// Save replaces the stored snapshot, keeps existing metadata and stamps
	// the last check time with the current wall clock.
	Save(ctx context.Context, slots model.Snapshot) error
	// LastCheckTime returns the last check time in epoch seconds, or 0.
	LastCheckTime(ctx context.Context) (float64, error)
	Close() error
}

// LoadOrEmpty loads the state, treating any failure as a first run.
func LoadOrEmpty(ctx context.Context, s Store, log *slog.Logger) model.State {
	st, err := s.Load(ctx)
	if err != nil {
		metrics.StateErrorsTotal.WithLabelValues("load").Inc()
		log.Warn("load state, starting empty", "error", err)
		return model.State{}
	}
	return st
}

// LastCheckOrZero returns the last check time, or 0 on any failure.
func LastCheckOrZero(ctx context.Context, s Store, log *slog.Logger) float64 {
	ts, err := s.LastCheckTime(ctx)
	if err != nil {
		metrics.StateErrorsTotal.WithLabelValues("last_check").Inc()
		log.Warn("read last check time", "error", err)
		return 0
	}
	return ts
}

func nowEpoch(now func() time.Time) float64 {
	return float64(now().UnixNano()) / float64(time.Second)
}
