package bridge

import (
	"time"

	"github.com/openclaw/bridge/pkg/events"
	"github.com/openclaw/bridge/pkg/governance"
)

// GatewayApprovalHook returns an approval hook that surfaces pending
// approvals on the event bus instead of blocking on a terminal. Each request
// emits an approval.required event; the decision arrives back as an
// approval.decision event, either pushed by the gateway or emitted locally.
// A request with no decision before timeout is denied.
//
// Wire the returned hook into a PolicyGovernor before constructing the
// bridge, or call it on an existing bridge and rebuild the governor.
func (b *Bridge) GatewayApprovalHook(timeout time.Duration) *governance.AsyncApprovalHook {
	hook := governance.NewAsyncApprovalHook(func(id string, req governance.ApprovalRequest) {
		b.bus.Emit(events.New(events.EventApprovalRequired, b.manager.State().SessionID, map[string]any{
			"approvalId": id,
			"skill":      req.SkillName,
			"params":     req.Params,
			"reason":     req.Reason,
			"urgency":    req.Urgency,
		}))
	}, timeout)

	b.bus.On(events.EventApprovalDecision, func(e events.Event) {
		id, _ := e.Payload["approvalId"].(string)
		if id == "" {
			return
		}
		approved, _ := e.Payload["approved"].(bool)
		approvedBy, _ := e.Payload["approvedBy"].(string)
		comment, _ := e.Payload["comment"].(string)
		hook.Respond(id, governance.ApprovalDecision{
			Approved:   approved,
			ApprovedBy: approvedBy,
			Comment:    comment,
		})
	})
	return hook
}
