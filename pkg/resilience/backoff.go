// SPDX-License-Identifier: Apache-2.0
// Package resilience provides the backoff policy used by the connection
// manager's reconnect loop.
package resilience

import (
	"math"
	"time"
)

// BackoffPolicy controls reconnect delay growth.
type BackoffPolicy struct {
	// InitialDelay is the delay before the first reconnect attempt.
	InitialDelay time.Duration

	// Multiplier for exponential growth (default 1.5).
	Multiplier float64

	// MaxDelay caps the computed delay. Zero means uncapped.
	MaxDelay time.Duration

	// MaxAttempts bounds the number of reconnect attempts (must be >= 1).
	MaxAttempts int
}

// DefaultBackoffPolicy returns the reconnect defaults.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		InitialDelay: time.Second,
		Multiplier:   1.5,
		MaxDelay:     30 * time.Second,
		MaxAttempts:  5,
	}
}

// Delay computes the delay before the given attempt (1-based):
// InitialDelay * Multiplier^(attempt-1), capped at MaxDelay.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 1.5
	}
	delay := time.Duration(float64(p.InitialDelay) * math.Pow(multiplier, float64(attempt-1)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Exhausted reports whether the attempt counter has passed the cap.
func (p BackoffPolicy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt > p.MaxAttempts
}
