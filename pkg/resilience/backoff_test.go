// SPDX-License-Identifier: Apache-2.0
package resilience

import (
	"testing"
	"time"
)

func TestDelayGrowsByMultiplier(t *testing.T) {
	p := BackoffPolicy{InitialDelay: time.Second, Multiplier: 1.5, MaxAttempts: 10}

	prev := p.Delay(1)
	if prev != time.Second {
		t.Fatalf("expected first delay 1s, got %v", prev)
	}
	for attempt := 2; attempt <= 6; attempt++ {
		cur := p.Delay(attempt)
		want := time.Duration(float64(prev) * 1.5)
		if cur != want {
			t.Fatalf("attempt %d: expected %v, got %v", attempt, want, cur)
		}
		prev = cur
	}
}

func TestDelayCap(t *testing.T) {
	p := BackoffPolicy{InitialDelay: time.Second, Multiplier: 2.0, MaxDelay: 3 * time.Second}
	if got := p.Delay(10); got != 3*time.Second {
		t.Fatalf("expected capped delay 3s, got %v", got)
	}
}

func TestExhausted(t *testing.T) {
	p := BackoffPolicy{MaxAttempts: 3}
	for attempt := 1; attempt <= 3; attempt++ {
		if p.Exhausted(attempt) {
			t.Fatalf("attempt %d should not be exhausted", attempt)
		}
	}
	if !p.Exhausted(4) {
		t.Fatalf("attempt 4 should be exhausted")
	}
}
