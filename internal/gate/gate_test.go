package gate

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func epoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func TestCheck(t *testing.T) {
	now := time.Date(2025, 1, 10, 19, 0, 0, 0, time.UTC)
	interval := 3 * time.Minute

	tests := []struct {
		name        string
		lastCheck   float64
		wantProceed bool
	}{
		{name: "first run", lastCheck: 0, wantProceed: true},
		{name: "one minute short of interval", lastCheck: epoch(now.Add(-2 * time.Minute)), wantProceed: false},
		{name: "one minute past interval", lastCheck: epoch(now.Add(-4 * time.Minute)), wantProceed: true},
		{name: "exactly at interval", lastCheck: epoch(now.Add(-interval)), wantProceed: true},
		{name: "just checked", lastCheck: epoch(now), wantProceed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(interval)
			g.SetClock(func() time.Time { return now })

			got := g.Check(tt.lastCheck)
			if diff := cmp.Diff(tt.wantProceed, got.Proceed); diff != "" {
				t.Errorf("Proceed mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCheckRemaining(t *testing.T) {
	now := time.Date(2025, 1, 10, 19, 0, 0, 0, time.UTC)
	g := New(5 * time.Minute)
	g.SetClock(func() time.Time { return now })

	got := g.Check(epoch(now.Add(-2 * time.Minute)))

	want := Decision{Proceed: false, Elapsed: 2 * time.Minute, Remaining: 3 * time.Minute}
	opt := cmp.Comparer(func(a, b time.Duration) bool {
		d := a - b
		return d < time.Millisecond && d > -time.Millisecond
	})
	if diff := cmp.Diff(want, got, opt); diff != "" {
		t.Errorf("Check mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckZeroIntervalAlwaysProceeds(t *testing.T) {
	now := time.Now()
	g := New(0)
	g.SetClock(func() time.Time { return now })

	if !g.Check(epoch(now)).Proceed {
		t.Error("zero interval should always proceed")
	}
}
