// Package metrics exposes Prometheus collectors for check cycles.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle results.
const (
	ResultSkipped   = "skipped"
	ResultEmpty     = "empty"
	ResultCompleted = "completed"
)

var (
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_cycles_total",
			Help: "Check cycles by result.",
		},
		[]string{"result"},
	)

	SlotsObserved = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_slots_observed",
			Help: "Slots seen in the last non-empty scrape.",
		},
	)

	NewlyAvailableTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_newly_available_total",
			Help: "Slots that became available.",
		},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracker_fetch_duration_seconds",
			Help:    "Location page fetch and parse time.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"location"},
	)

	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_fetch_errors_total",
			Help: "Failed location fetches.",
		},
		[]string{"location"},
	)

	StateErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_state_errors_total",
			Help: "State store failures by operation.",
		},
		[]string{"op"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_notifications_total",
			Help: "Notification deliveries by channel and status.",
		},
		[]string{"channel", "status"},
	)
)

// ObserveFetch records one location fetch.
func ObserveFetch(location string, d time.Duration, err error) {
	FetchDuration.WithLabelValues(location).Observe(d.Seconds())
	if err != nil {
		FetchErrorsTotal.WithLabelValues(location).Inc()
	}
}

// ObserveNotification records one delivery attempt.
func ObserveNotification(channel string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	NotificationsTotal.WithLabelValues(channel, status).Inc()
}
