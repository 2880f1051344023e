// Package events provides the typed publish/subscribe hub used by the bridge
// to surface connection state, tool lifecycle, and streamed message tokens.
package events

import (
	"time"
)

// EventType identifies a semantic event emitted by the bridge.
type EventType string

const (
	EventConnecting      EventType = "connecting"
	EventConnected       EventType = "connected"
	EventDisconnected    EventType = "disconnected"
	EventReconnecting    EventType = "reconnecting"
	EventReconnectFailed EventType = "reconnect_failed"
	EventToolStart       EventType = "tool_start"
	EventToolEnd         EventType = "tool_end"
	EventMessage         EventType = "message"
	EventThinking        EventType = "thinking"
	EventResponse        EventType = "response"
	EventError           EventType = "error"

	// Approval events carry an "approvalId" correlating the required
	// notification with its decision.
	EventApprovalRequired EventType = "approval.required"
	EventApprovalDecision EventType = "approval.decision"

	// EventAny is the catch-all name: every published event is also delivered
	// to its subscribers, so generic loggers can subscribe once.
	EventAny EventType = "event"
)

// Event is an immutable envelope published once and never mutated.
type Event struct {
	Type      EventType
	SessionID string
	Timestamp time.Time
	Payload   map[string]any
}

// New builds an event stamped with the current time.
func New(eventType EventType, sessionID string, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Handler receives published events.
type Handler func(Event)
