package modem

import (
	"log/slog"
	"time"
)

// DutyCycle is the admission check run before every uplink.
//
// Sigfox operates on public frequencies where a device may only transmit 1%
// of the time. A message takes about 6 seconds on air (it is repeated 3
// times), hence the recommended 10 minute spacing. Operators may enforce
// stricter limits by contract and block devices that exceed them.
type DutyCycle struct {
	// Floor is the hard minimum between two messages. A send within Floor
	// of the previous one, boundary included, is rejected.
	Floor time.Duration
	// Recommended is the regulatory spacing. Sends below it are allowed
	// with a warning.
	Recommended time.Duration
	// Logger receives the rejection and spacing warnings. Discarded when
	// nil.
	Logger *slog.Logger
}

// Ready reports whether a message may be sent at now given the time of the
// last successful send. A zero last means nothing was sent yet.
func (d DutyCycle) Ready(now, last time.Time) bool {
	if last.IsZero() {
		return true
	}
	elapsed := now.Sub(last)
	if elapsed <= d.Floor {
		d.log().Warn("message rejected, previous one too recent",
			"elapsed", elapsed, "min_interval", d.Floor)
		return false
	}
	if elapsed <= d.Recommended {
		d.log().Warn("duty cycle: should wait longer before sending the next message",
			"elapsed", elapsed, "recommended_interval", d.Recommended)
	}
	return true
}

func (d DutyCycle) log() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}
