package connectivity

import (
	"testing"
	"time"
)

func TestLinkWatchdogTick(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := time.Hour

	tests := []struct {
		name    string
		elapsed time.Duration
		reset   bool
		want    Action
	}{
		{"just started", 0, false, ActionWait},
		{"inside window", 59 * time.Minute, false, ActionWait},
		{"exactly at window", time.Hour, false, ActionWait},
		{"past window", time.Hour + time.Nanosecond, false, ActionRestart},
		{"reset asserted early", time.Second, true, ActionRestart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewLinkWatchdog(window, start)
			if got := w.Tick(start.Add(tt.elapsed), tt.reset); got != tt.want {
				t.Errorf("Tick() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLinkWatchdogLinkUpRestartsWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w := NewLinkWatchdog(time.Hour, start)

	w.LinkUp(start.Add(50 * time.Minute))

	if got := w.Tick(start.Add(90*time.Minute), false); got != ActionWait {
		t.Errorf("Tick() = %v, want wait after the link was seen up", got)
	}
	if want := start.Add(110 * time.Minute); !w.Deadline().Equal(want) {
		t.Errorf("Deadline() = %v, want %v", w.Deadline(), want)
	}
}

func TestSessionRetryTick(t *testing.T) {
	var r SessionRetry
	now := time.Now()

	for i := 1; i <= 100; i++ {
		if got := r.Tick(now, false); got != ActionRetry {
			t.Fatalf("Tick() #%d = %v, want retry", i, got)
		}
	}
	if r.Failures() != 100 {
		t.Errorf("Failures() = %d, want 100", r.Failures())
	}
	if got := r.Tick(now, true); got != ActionRestart {
		t.Errorf("Tick() with reset = %v, want restart", got)
	}

	r.Succeeded()
	if r.Failures() != 0 {
		t.Errorf("Failures() after success = %d", r.Failures())
	}
}

func TestStateStrings(t *testing.T) {
	want := map[State]string{
		Disconnected:     "disconnected",
		AcquiringNetwork: "acquiring_network",
		AcquiringSession: "acquiring_session",
		Subscribing:      "subscribing",
		Ready:            "ready",
	}
	for s, name := range want {
		if s.String() != name {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), name)
		}
	}
}
