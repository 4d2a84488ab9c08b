// Package tracker runs check cycles: gate, scrape, diff, save and notify.
package tracker

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"nyurban_tracker/internal/change"
	"nyurban_tracker/internal/gate"
	"nyurban_tracker/internal/logging"
	"nyurban_tracker/internal/metrics"
	"nyurban_tracker/internal/model"
	"nyurban_tracker/internal/notify"
	"nyurban_tracker/internal/storage"
)

// Fetcher produces the aggregate snapshot of every location.
type Fetcher interface {
	FetchAll(ctx context.Context) model.Snapshot
}

// Result describes one check cycle.
type Result struct {
	CycleID string
	// Outcome is one of metrics.ResultSkipped, ResultEmpty or ResultCompleted.
	Outcome        string
	Total          int
	NewlyAvailable []model.Slot
	SaveErr        error
	NotifyErr      error
}

// Checker runs one check cycle at a time.
type Checker struct {
	fetcher  Fetcher
	store    storage.Store
	gate     *gate.Gate
	notifier notify.Notifier
	log      *slog.Logger
}

// NewChecker wires the cycle collaborators together.
func NewChecker(f Fetcher, store storage.Store, g *gate.Gate, n notify.Notifier, log *slog.Logger) *Checker {
	return &Checker{fetcher: f, store: store, gate: g, notifier: n, log: log}
}

// Run executes one cycle. Fetch, state and notification failures are logged
// and reported in the Result; the returned error is only set when ctx ended
// before the cycle finished.
func (c *Checker) Run(ctx context.Context) (Result, error) {
	res := Result{CycleID: uuid.NewString()}
	log := logging.FromContext(ctx, c.log).With("cycle_id", res.CycleID)
	ctx = logging.WithLogger(ctx, log)

	last := storage.LastCheckOrZero(ctx, c.store, log)
	if d := c.gate.Check(last); !d.Proceed {
		log.Info("skipping check, interval not reached",
			"elapsed_minutes", roundMinutes(d.Elapsed.Minutes()),
			"remaining_minutes", roundMinutes(d.Remaining.Minutes()))
		res.Outcome = metrics.ResultSkipped
		metrics.CyclesTotal.WithLabelValues(res.Outcome).Inc()
		return res, nil
	}

	log.Info("starting availability check")
	current := c.fetcher.FetchAll(ctx)
	res.Total = current.Len()
	if current.Len() == 0 {
		log.Warn("no slots found, site may be down or structure changed")
		res.Outcome = metrics.ResultEmpty
		metrics.CyclesTotal.WithLabelValues(res.Outcome).Inc()
		return res, ctx.Err()
	}
	log.Info("found total slots", "count", current.Len())
	metrics.SlotsObserved.Set(float64(current.Len()))

	previous := storage.LoadOrEmpty(ctx, c.store, log)
	res.NewlyAvailable = change.Detect(previous.Slots, current)

	if err := c.store.Save(ctx, current); err != nil {
		metrics.StateErrorsTotal.WithLabelValues("save").Inc()
		log.Error("save state", "error", err)
		res.SaveErr = err
	}

	if n := len(res.NewlyAvailable); n > 0 {
		metrics.NewlyAvailableTotal.Add(float64(n))
		log.Info("slots became available", "count", n)
		for i, s := range res.NewlyAvailable {
			log.Info("newly available",
				"n", i+1, "location", s.Location, "date", s.Date, "gym", s.Gym,
				"level", s.Level, "time", s.Time, "fee", s.Fee, "status", s.Available)
		}
		if err := c.notifier.Notify(ctx, res.NewlyAvailable); err != nil {
			log.Error("send notification", "error", err)
			res.NotifyErr = err
		}
	} else {
		log.Info("checked, no new availability", "total", current.Len())
	}

	res.Outcome = metrics.ResultCompleted
	metrics.CyclesTotal.WithLabelValues(res.Outcome).Inc()
	return res, ctx.Err()
}

func roundMinutes(m float64) float64 {
	return float64(int(m*10+0.5)) / 10
}
