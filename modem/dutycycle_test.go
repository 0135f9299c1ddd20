package modem_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"i4.energy/across/sigfoxgw/modem"
)

func TestDutyCycleReady(t *testing.T) {
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		last    time.Time
		elapsed time.Duration
		ready   bool
		warned  bool
	}{
		{"First message", time.Time{}, 0, true, false},
		{"Within the floor", last, time.Second, false, true},
		{"Exactly at the floor", last, 2 * time.Second, false, true},
		{"Just past the floor", last, 2*time.Second + time.Nanosecond, true, true},
		{"Below the recommended interval", last, 5 * time.Minute, true, true},
		{"Past the recommended interval", last, 11 * time.Minute, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			duty := modem.DutyCycle{
				Floor:       2 * time.Second,
				Recommended: 10 * time.Minute,
				Logger:      slog.New(slog.NewTextHandler(&logs, nil)),
			}

			now := last.Add(tt.elapsed)
			if tt.last.IsZero() {
				now = last
			}

			if got := duty.Ready(now, tt.last); got != tt.ready {
				t.Errorf("expected Ready() = %v, got %v", tt.ready, got)
			}
			if warned := strings.Contains(logs.String(), "level=WARN"); warned != tt.warned {
				t.Errorf("expected warning = %v, logs: %q", tt.warned, logs.String())
			}
		})
	}

	t.Run("Nil logger", func(t *testing.T) {
		duty := modem.DutyCycle{Floor: time.Second}
		if duty.Ready(last.Add(time.Millisecond), last) {
			t.Error("expected rejection within the floor")
		}
	})
}
