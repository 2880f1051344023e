package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/openclaw/bridge/pkg/events"
	"github.com/openclaw/bridge/pkg/governance"
)

func TestGatewayApprovalHookApproved(t *testing.T) {
	b := newTestBridge(t)
	hook := b.GatewayApprovalHook(5 * time.Second)

	required := make(chan string, 1)
	b.On(events.EventApprovalRequired, func(e events.Event) {
		id, _ := e.Payload["approvalId"].(string)
		required <- id
	})

	done := make(chan governance.ApprovalDecision, 1)
	go func() {
		decision, err := hook.Request(context.Background(), governance.ApprovalRequest{
			SkillName: "web-search",
			Reason:    "policy requires approval",
		})
		if err != nil {
			t.Errorf("Request: %v", err)
		}
		done <- decision
	}()

	var id string
	select {
	case id = <-required:
	case <-time.After(2 * time.Second):
		t.Fatal("approval.required event never emitted")
	}
	if id == "" {
		t.Fatal("approval.required event carried no approvalId")
	}

	b.bus.Emit(events.New(events.EventApprovalDecision, "", map[string]any{
		"approvalId": id,
		"approved":   true,
		"approvedBy": "reviewer",
		"comment":    "looks fine",
	}))

	select {
	case decision := <-done:
		if !decision.Approved {
			t.Error("expected approval")
		}
		if decision.ApprovedBy != "reviewer" || decision.Comment != "looks fine" {
			t.Errorf("decision not carried through: %+v", decision)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("decision never reached the waiting request")
	}
}

func TestGatewayApprovalHookTimeout(t *testing.T) {
	b := newTestBridge(t)
	hook := b.GatewayApprovalHook(50 * time.Millisecond)

	decision, err := hook.Request(context.Background(), governance.ApprovalRequest{
		SkillName: "web-search",
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if decision.Approved {
		t.Error("timed-out approval must be denied")
	}
}

func TestGatewayApprovalHookIgnoresUnknownDecision(t *testing.T) {
	b := newTestBridge(t)
	hook := b.GatewayApprovalHook(100 * time.Millisecond)

	// A decision for an id nobody is waiting on must not panic or leak.
	b.bus.Emit(events.New(events.EventApprovalDecision, "", map[string]any{
		"approvalId": "nope",
		"approved":   true,
	}))

	decision, err := hook.Request(context.Background(), governance.ApprovalRequest{SkillName: "s"})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if decision.Approved {
		t.Error("stray decision must not approve a later request")
	}
}
