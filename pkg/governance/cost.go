package governance

import (
	"context"
	"sync"
)

// SessionCostTracker accounts for skill cost within one bridge session. It is
// safe for concurrent use and resettable when the session is cleared.
type SessionCostTracker struct {
	mu        sync.Mutex
	spent     float64
	maxTotal  float64
	estimates map[string]float64
}

// NewSessionCostTracker creates a tracker with the given total budget. A zero
// budget means unlimited.
func NewSessionCostTracker(maxTotal float64) *SessionCostTracker {
	return &SessionCostTracker{
		maxTotal:  maxTotal,
		estimates: make(map[string]float64),
	}
}

// SetEstimate registers a per-skill cost estimate used by EstimateCost.
func (t *SessionCostTracker) SetEstimate(skillName string, cost float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.estimates[skillName] = cost
}

// EstimateCost returns the registered estimate for the skill, or zero.
func (t *SessionCostTracker) EstimateCost(_ context.Context, skillName string, _ map[string]any) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.estimates[skillName], nil
}

// RecordCost adds the actual cost to the session total.
func (t *SessionCostTracker) RecordCost(_ context.Context, _ string, actual float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spent += actual
	return nil
}

// CheckBudget reports whether the estimated cost fits the remaining budget.
func (t *SessionCostTracker) CheckBudget(_ context.Context, estimated float64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.maxTotal <= 0 {
		return true, nil
	}
	return t.spent+estimated <= t.maxTotal, nil
}

// CurrentSpent returns the session total so far.
func (t *SessionCostTracker) CurrentSpent(_ context.Context) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spent
}

// Reset clears the session total.
func (t *SessionCostTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spent = 0
}
