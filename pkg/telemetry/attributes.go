// Copyright 2026 © The OpenClaw Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for bridge telemetry. These follow OpenTelemetry
// naming conventions where applicable.
const (
	// Connection attributes
	AttrGatewayURL       = "openclaw.gateway.url"
	AttrSessionID        = "openclaw.session.id"
	AttrReconnectAttempt = "openclaw.connection.reconnect_attempt"

	// Skill attributes
	AttrSkillID         = "openclaw.skill.id"
	AttrSkillName       = "openclaw.skill.name"
	AttrSkillTools      = "openclaw.skill.tools"
	AttrSkillSuccess    = "openclaw.skill.success"
	AttrSkillDurationMs = "openclaw.skill.duration_ms"
	AttrSkillCost       = "openclaw.skill.cost"

	// Governance attributes
	AttrPolicyAllowed    = "openclaw.policy.allowed"
	AttrPolicyReason     = "openclaw.policy.reason"
	AttrApprovalRequired = "openclaw.policy.approval_required"
	AttrApprovalDecision = "openclaw.approval.approved"
	AttrApprovedBy       = "openclaw.approval.approved_by"

	// Event and error attributes
	AttrEventType        = "openclaw.event.type"
	AttrErrorCode        = "openclaw.error.code"
	AttrErrorRecoverable = "openclaw.error.recoverable"
	AttrComponent        = "openclaw.component"

	// Request attributes
	AttrRequestID     = "openclaw.request.id"
	AttrRequestAction = "openclaw.request.action"
)

// ConnectionAttributes returns common attributes for connection spans.
func ConnectionAttributes(url, sessionID string, reconnectAttempt int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrGatewayURL, url),
	}
	if sessionID != "" {
		attrs = append(attrs, attribute.String(AttrSessionID, sessionID))
	}
	if reconnectAttempt > 0 {
		attrs = append(attrs, attribute.Int(AttrReconnectAttempt, reconnectAttempt))
	}
	return attrs
}

// SkillAttributes returns attributes for a skill execution span.
func SkillAttributes(id, name string, tools []string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrSkillID, id),
	}
	if name != "" {
		attrs = append(attrs, attribute.String(AttrSkillName, name))
	}
	if len(tools) > 0 {
		attrs = append(attrs, attribute.StringSlice(AttrSkillTools, tools))
	}
	return attrs
}

// SkillOutcomeAttributes returns attributes for the completed execution.
func SkillOutcomeAttributes(success bool, durationMs, cost float64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool(AttrSkillSuccess, success),
		attribute.Float64(AttrSkillDurationMs, durationMs),
	}
	if cost > 0 {
		attrs = append(attrs, attribute.Float64(AttrSkillCost, cost))
	}
	return attrs
}

// PolicyAttributes returns attributes for a policy evaluation.
func PolicyAttributes(allowed, requiresApproval bool, reason string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool(AttrPolicyAllowed, allowed),
		attribute.Bool(AttrApprovalRequired, requiresApproval),
	}
	if reason != "" {
		attrs = append(attrs, attribute.String(AttrPolicyReason, reason))
	}
	return attrs
}

// ApprovalAttributes returns attributes for an approval decision.
func ApprovalAttributes(approved bool, approvedBy string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool(AttrApprovalDecision, approved),
	}
	if approvedBy != "" {
		attrs = append(attrs, attribute.String(AttrApprovedBy, approvedBy))
	}
	return attrs
}

// RequestAttributes returns attributes for an outbound request span.
func RequestAttributes(requestID, action string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if requestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, requestID))
	}
	if action != "" {
		attrs = append(attrs, attribute.String(AttrRequestAction, action))
	}
	return attrs
}
