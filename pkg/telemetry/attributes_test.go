// Copyright 2026 © The OpenClaw Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func findAttr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestConnectionAttributes(t *testing.T) {
	attrs := ConnectionAttributes("ws://gateway:9090", "sess-1", 3)
	if v, ok := findAttr(attrs, AttrGatewayURL); !ok || v.AsString() != "ws://gateway:9090" {
		t.Fatalf("gateway url attr = %v", attrs)
	}
	if v, ok := findAttr(attrs, AttrSessionID); !ok || v.AsString() != "sess-1" {
		t.Fatalf("session attr = %v", attrs)
	}
	if v, ok := findAttr(attrs, AttrReconnectAttempt); !ok || v.AsInt64() != 3 {
		t.Fatalf("reconnect attr = %v", attrs)
	}

	attrs = ConnectionAttributes("ws://gateway:9090", "", 0)
	if _, ok := findAttr(attrs, AttrSessionID); ok {
		t.Fatal("empty session must be omitted")
	}
	if _, ok := findAttr(attrs, AttrReconnectAttempt); ok {
		t.Fatal("zero attempt must be omitted")
	}
}

func TestSkillAttributes(t *testing.T) {
	attrs := SkillAttributes("openclaw_web-search", "web-search", []string{"fetch"})
	if v, ok := findAttr(attrs, AttrSkillID); !ok || v.AsString() != "openclaw_web-search" {
		t.Fatalf("skill id attr = %v", attrs)
	}
	if _, ok := findAttr(attrs, AttrSkillTools); !ok {
		t.Fatalf("tools attr missing: %v", attrs)
	}

	attrs = SkillAttributes("openclaw_web-search", "", nil)
	if len(attrs) != 1 {
		t.Fatalf("optional attrs must be omitted, got %v", attrs)
	}
}

func TestPolicyAttributes(t *testing.T) {
	attrs := PolicyAttributes(false, true, "sensitive data")
	if v, ok := findAttr(attrs, AttrPolicyAllowed); !ok || v.AsBool() {
		t.Fatalf("allowed attr = %v", attrs)
	}
	if v, ok := findAttr(attrs, AttrApprovalRequired); !ok || !v.AsBool() {
		t.Fatalf("approval attr = %v", attrs)
	}
	if v, ok := findAttr(attrs, AttrPolicyReason); !ok || v.AsString() != "sensitive data" {
		t.Fatalf("reason attr = %v", attrs)
	}
}

func TestRequestAttributes(t *testing.T) {
	attrs := RequestAttributes("171-abc", "invoke_skill")
	if v, ok := findAttr(attrs, AttrRequestID); !ok || v.AsString() != "171-abc" {
		t.Fatalf("request id attr = %v", attrs)
	}
	if v, ok := findAttr(attrs, AttrRequestAction); !ok || v.AsString() != "invoke_skill" {
		t.Fatalf("action attr = %v", attrs)
	}

	attrs = RequestAttributes("", "")
	if len(attrs) != 0 {
		t.Fatalf("all-empty input must yield no attrs, got %v", attrs)
	}
}
