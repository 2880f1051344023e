// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for the bridge.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies bridge errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeConnectionTimeout indicates the transport could not be opened in time.
	CodeConnectionTimeout ErrorCode = "CONNECTION_TIMEOUT"

	// CodeNotConnected indicates an operation required an open connection.
	CodeNotConnected ErrorCode = "NOT_CONNECTED"

	// CodeRequestTimeout indicates a pending request expired before a reply arrived.
	CodeRequestTimeout ErrorCode = "REQUEST_TIMEOUT"

	// CodeGovernanceDenied indicates the policy check rejected the action.
	CodeGovernanceDenied ErrorCode = "GOVERNANCE_DENIED"

	// CodeApprovalDenied indicates a human reviewer rejected the action.
	CodeApprovalDenied ErrorCode = "APPROVAL_DENIED"

	// CodeBudgetExceeded indicates the estimated cost does not fit the remaining budget.
	CodeBudgetExceeded ErrorCode = "BUDGET_EXCEEDED"

	// CodeExecutionError indicates a skill execution failed.
	CodeExecutionError ErrorCode = "EXECUTION_ERROR"

	// CodeParseError indicates a malformed inbound frame or skill document.
	CodeParseError ErrorCode = "PARSE_ERROR"

	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"
)

// BridgeError is a typed error with structured context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type BridgeError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface.
func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *BridgeError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *BridgeError) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"code":        string(e.Code),
		"message":     e.Error(),
		"recoverable": e.Recoverable,
	}
	if e.Err != nil {
		out["error"] = e.Err.Error()
	}
	if len(e.Context) > 0 {
		out["context"] = e.Context
	}
	return json.Marshal(out)
}

// New creates a new BridgeError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *BridgeError {
	return &BridgeError{
		Code:    code,
		Message: msg,
		Err:     cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *BridgeError) WithContext(key string, value interface{}) *BridgeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *BridgeError) WithRecoverable(recoverable bool) *BridgeError {
	e.Recoverable = recoverable
	return e
}

// AsBridgeError attempts to convert an error to a BridgeError.
// Returns the error as BridgeError if it is one, or wraps it otherwise.
func AsBridgeError(err error) *BridgeError {
	if err == nil {
		return nil
	}
	if be, ok := err.(*BridgeError); ok {
		return be
	}
	return New(CodeInternal, "wrapped error", err)
}

// CodeOf returns the error code of err, or CodeInternal for untyped errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if be, ok := err.(*BridgeError); ok {
		return be.Code
	}
	return CodeInternal
}
