package governance

import (
	"context"
	"database/sql"
	"testing"
	"time"
)

func TestMemoryAuditLog(t *testing.T) {
	log := NewMemoryAuditLog()
	entry := AuditEntry{
		Action:   "web-search",
		Params:   map[string]any{"query": "golang"},
		Outcome:  "completed",
		Duration: 120 * time.Millisecond,
		Cost:     0.02,
		Success:  true,
	}
	if err := log.Record(context.Background(), entry); err != nil {
		t.Fatalf("record: %v", err)
	}
	entries, err := log.List(context.Background(), AuditFilter{Action: "web-search"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be stamped")
	}
}

func TestSQLiteAuditLog(t *testing.T) {
	db, err := sql.Open("sqlite", "file:bridge_audit_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	log, err := NewSQLiteAuditLog(db)
	if err != nil {
		t.Fatalf("new sqlite log: %v", err)
	}

	entries := []AuditEntry{
		{Action: "web-search", Params: map[string]any{"query": "one"}, Outcome: "completed", Success: true, Cost: 0.01},
		{Action: "web-search", Outcome: "failed", Success: false},
		{Action: "deploy", Outcome: "completed", Success: true},
	}
	for _, entry := range entries {
		if err := log.Record(context.Background(), entry); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := log.List(context.Background(), AuditFilter{Action: "web-search"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Params["query"] != "one" {
		t.Fatalf("expected params round-trip, got %v", got[0].Params)
	}

	failed := false
	got, err = log.List(context.Background(), AuditFilter{Success: &failed})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 || got[0].Outcome != "failed" {
		t.Fatalf("unexpected failed entries: %+v", got)
	}

	got, err = log.List(context.Background(), AuditFilter{Limit: 1})
	if err != nil {
		t.Fatalf("list limit: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected limit 1, got %d", len(got))
	}
}
