// SPDX-License-Identifier: Apache-2.0
package errors

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	be := New(CodeConnectionTimeout, "gateway unreachable", cause)

	if be.Code != CodeConnectionTimeout {
		t.Errorf("expected CodeConnectionTimeout, got %v", be.Code)
	}
	if be.Message != "gateway unreachable" {
		t.Errorf("expected message 'gateway unreachable', got %q", be.Message)
	}
	if be.Err != cause {
		t.Errorf("expected cause to be preserved")
	}
	if !errors.Is(be, cause) {
		t.Errorf("expected errors.Is to work with wrapped error")
	}
}

func TestWithContext(t *testing.T) {
	be := New(CodeExecutionError, "skill failed", nil)
	be.WithContext("skill", "web-search").
		WithContext("params", map[string]interface{}{"query": "golang"})

	if be.Context["skill"] != "web-search" {
		t.Errorf("expected context skill to be 'web-search'")
	}
	if be.Context["params"] == nil {
		t.Errorf("expected context params to be set")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		be       *BridgeError
		expected string
	}{
		{
			name:     "with cause",
			be:       New(CodeRequestTimeout, "request timed out", errors.New("deadline exceeded")),
			expected: "[REQUEST_TIMEOUT] request timed out: deadline exceeded",
		},
		{
			name:     "without cause",
			be:       New(CodeNotConnected, "bridge is not connected", nil),
			expected: "[NOT_CONNECTED] bridge is not connected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.be.Error()
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestAsBridgeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{name: "nil error", err: nil, expected: ""},
		{name: "already BridgeError", err: New(CodeBudgetExceeded, "over budget", nil), expected: CodeBudgetExceeded},
		{name: "generic error", err: errors.New("generic error"), expected: CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := AsBridgeError(tt.err)
			if tt.expected == "" {
				if be != nil {
					t.Errorf("expected nil for nil error")
				}
				return
			}
			if be == nil {
				t.Fatalf("expected non-nil BridgeError")
			}
			if be.Code != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, be.Code)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(CodeApprovalDenied, "denied", nil)); got != CodeApprovalDenied {
		t.Errorf("expected APPROVAL_DENIED, got %v", got)
	}
	if got := CodeOf(errors.New("plain")); got != CodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %v", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Errorf("expected empty code for nil, got %v", got)
	}
}

func TestMarshalJSON(t *testing.T) {
	be := New(CodeExecutionError, "skill failed", errors.New("boom"))
	be.WithContext("skill", "web-search").WithRecoverable(true)

	data, err := json.Marshal(be)
	if err != nil {
		t.Fatalf("unexpected error marshaling: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unexpected error unmarshaling: %v", err)
	}

	if result["code"] != "EXECUTION_ERROR" {
		t.Errorf("expected code 'EXECUTION_ERROR', got %v", result["code"])
	}
	if result["recoverable"] != true {
		t.Errorf("expected recoverable true")
	}
}
