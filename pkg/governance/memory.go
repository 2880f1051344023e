package governance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ExecutionMemory is a simple in-process execution recorder. RelevantContext
// returns the most recent entries whose skill name or parameters mention the
// query, newest first.
type ExecutionMemory struct {
	mu      sync.RWMutex
	entries []executionRecord
	limit   int
}

type executionRecord struct {
	skillName string
	params    map[string]any
	result    any
	at        time.Time
}

// NewExecutionMemory creates a memory retaining at most limit entries
// (0 means unbounded).
func NewExecutionMemory(limit int) *ExecutionMemory {
	return &ExecutionMemory{limit: limit}
}

// Record appends an execution entry, evicting the oldest past the limit.
func (m *ExecutionMemory) Record(_ context.Context, skillName string, params map[string]any, result any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, executionRecord{
		skillName: skillName,
		params:    params,
		result:    result,
		at:        time.Now().UTC(),
	})
	if m.limit > 0 && len(m.entries) > m.limit {
		m.entries = m.entries[len(m.entries)-m.limit:]
	}
	return nil
}

// RelevantContext returns up to three matching entries as a newline-joined
// summary string, or "" when nothing matches.
func (m *ExecutionMemory) RelevantContext(_ context.Context, query string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	var lines []string
	for i := len(m.entries) - 1; i >= 0 && len(lines) < 3; i-- {
		entry := m.entries[i]
		if query != "" && !matches(entry, query) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: executed %s with %v", entry.at.Format(time.RFC3339), entry.skillName, entry.params))
	}
	return strings.Join(lines, "\n"), nil
}

// Reset clears all recorded executions.
func (m *ExecutionMemory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
}

func matches(entry executionRecord, query string) bool {
	if strings.Contains(strings.ToLower(entry.skillName), query) {
		return true
	}
	for key, value := range entry.params {
		if strings.Contains(strings.ToLower(key), query) {
			return true
		}
		if s, ok := value.(string); ok && strings.Contains(strings.ToLower(s), query) {
			return true
		}
	}
	return false
}
