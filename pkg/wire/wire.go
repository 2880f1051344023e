// Package wire defines the JSON framing exchanged with the gateway over the
// duplex connection. Outbound frames are requests; inbound frames are either
// replies (matched by requestId) or pushed events.
package wire

import (
	"encoding/json"
	"time"

	"github.com/openclaw/bridge/pkg/errors"
)

// Action names understood by the gateway.
const (
	ActionAuth        = "auth"
	ActionMessage     = "message"
	ActionInvokeSkill = "invoke_skill"
)

// Request is an outbound frame.
type Request struct {
	Action    string         `json:"action"`
	RequestID string         `json:"requestId"`
	SessionID string         `json:"sessionId,omitempty"`
	Skill     string         `json:"skill,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Message   string         `json:"message,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Token     string         `json:"token,omitempty"`
}

// Frame is an inbound frame. A frame with a RequestID is a reply to a pending
// request; a frame with a Type is a pushed event. Either form may carry a
// SessionID, which always updates the bridge session.
type Frame struct {
	RequestID string          `json:"requestId,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`

	Type      string    `json:"type,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// IsReply reports whether the frame answers a pending request.
func (f Frame) IsReply() bool {
	return f.RequestID != ""
}

// DataMap decodes the frame payload into a generic map. Returns nil for an
// empty or non-object payload.
func (f Frame) DataMap() map[string]any {
	if len(f.Data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(f.Data, &out); err != nil {
		return nil
	}
	return out
}

// Decode parses raw bytes into a Frame. Malformed JSON yields a PARSE_ERROR.
func Decode(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, errors.New(errors.CodeParseError, "malformed inbound frame", err).
			WithContext("raw_len", len(raw))
	}
	return f, nil
}

// Encode serializes a request for the transport.
func Encode(req Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, errors.New(errors.CodeInternal, "encode request frame", err)
	}
	return data, nil
}
