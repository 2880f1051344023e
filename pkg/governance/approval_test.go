package governance

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestConsoleApprovalHook(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		approved bool
	}{
		{name: "yes", input: "y\n", approved: true},
		{name: "no", input: "n\n", approved: false},
		{name: "empty defaults to deny", input: "\n", approved: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			hook := NewConsoleApprovalHook(
				WithApprovalInput(strings.NewReader(tt.input)),
				WithApprovalOutput(&out),
			)
			decision, err := hook.Request(context.Background(), ApprovalRequest{
				SkillName: "deploy-prod",
				Reason:    "production deployment",
				Urgency:   "high",
			})
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if decision.Approved != tt.approved {
				t.Fatalf("expected approved=%v, got %v", tt.approved, decision.Approved)
			}
			if !strings.Contains(out.String(), "deploy-prod") {
				t.Fatalf("expected prompt to mention the skill: %q", out.String())
			}
		})
	}
}

func TestAsyncApprovalHookRespond(t *testing.T) {
	var notifiedID string
	var hook *AsyncApprovalHook
	hook = NewAsyncApprovalHook(func(id string, _ ApprovalRequest) {
		notifiedID = id
		go hook.Respond(id, ApprovalDecision{Approved: true, ApprovedBy: "reviewer"})
	}, time.Second)

	decision, err := hook.Request(context.Background(), ApprovalRequest{SkillName: "deploy"})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !decision.Approved || decision.ApprovedBy != "reviewer" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
	if notifiedID == "" {
		t.Fatalf("expected notify callback to receive an id")
	}
	if pending := hook.Pending(); len(pending) != 0 {
		t.Fatalf("expected no pending approvals, got %d", len(pending))
	}
}

func TestAsyncApprovalHookTimeoutDenies(t *testing.T) {
	hook := NewAsyncApprovalHook(nil, 20*time.Millisecond)
	decision, err := hook.Request(context.Background(), ApprovalRequest{SkillName: "deploy"})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if decision.Approved {
		t.Fatalf("expected auto-deny on timeout")
	}
}

func TestAsyncApprovalHookContextCancel(t *testing.T) {
	hook := NewAsyncApprovalHook(nil, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	decision, err := hook.Request(ctx, ApprovalRequest{SkillName: "deploy"})
	if err == nil {
		t.Fatalf("expected context error")
	}
	if decision.Approved {
		t.Fatalf("expected denial on cancellation")
	}
}

func TestAsyncApprovalHookUnknownIDIgnored(t *testing.T) {
	hook := NewAsyncApprovalHook(nil, time.Minute)
	hook.Respond("missing", ApprovalDecision{Approved: true})
}

func TestExecutionMemory(t *testing.T) {
	mem := NewExecutionMemory(2)
	ctx := context.Background()
	_ = mem.Record(ctx, "web-search", map[string]any{"query": "golang"}, "ok")
	_ = mem.Record(ctx, "translate", map[string]any{"text": "hola"}, "ok")
	_ = mem.Record(ctx, "web-search", map[string]any{"query": "rust"}, "ok")

	// Oldest entry evicted by the limit.
	got, err := mem.RelevantContext(ctx, "golang")
	if err != nil {
		t.Fatalf("relevant context: %v", err)
	}
	if got != "" {
		t.Fatalf("expected evicted entry to be gone, got %q", got)
	}

	got, _ = mem.RelevantContext(ctx, "web-search")
	if !strings.Contains(got, "web-search") {
		t.Fatalf("expected web-search context, got %q", got)
	}

	mem.Reset()
	got, _ = mem.RelevantContext(ctx, "")
	if got != "" {
		t.Fatalf("expected empty after reset, got %q", got)
	}
}
