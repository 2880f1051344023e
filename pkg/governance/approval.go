// Copyright 2026 © The OpenClaw Authors
// SPDX-License-Identifier: Apache-2.0

package governance

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StaticApprovalHook returns a fixed decision for every request.
type StaticApprovalHook struct {
	Decision ApprovalDecision
}

// Request returns the configured decision.
func (h StaticApprovalHook) Request(_ context.Context, _ ApprovalRequest) (ApprovalDecision, error) {
	return h.Decision, nil
}

// ConsoleApprovalHook prompts for approval on stdin/stdout.
type ConsoleApprovalHook struct {
	in      *bufio.Reader
	out     io.Writer
	prompt  string
	timeout time.Duration
}

// ConsoleApprovalOption configures the console approval hook.
type ConsoleApprovalOption func(*ConsoleApprovalHook)

// NewConsoleApprovalHook creates a console-based approval hook.
func NewConsoleApprovalHook(opts ...ConsoleApprovalOption) *ConsoleApprovalHook {
	h := &ConsoleApprovalHook{
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		prompt: "Approve? [y/N]: ",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WithApprovalInput sets the input reader for the console hook.
func WithApprovalInput(r io.Reader) ConsoleApprovalOption {
	return func(h *ConsoleApprovalHook) {
		if r != nil {
			h.in = bufio.NewReader(r)
		}
	}
}

// WithApprovalOutput sets the output writer for the console hook.
func WithApprovalOutput(w io.Writer) ConsoleApprovalOption {
	return func(h *ConsoleApprovalHook) {
		if w != nil {
			h.out = w
		}
	}
}

// WithApprovalTimeout sets a timeout for waiting on operator input.
func WithApprovalTimeout(timeout time.Duration) ConsoleApprovalOption {
	return func(h *ConsoleApprovalHook) {
		if timeout > 0 {
			h.timeout = timeout
		}
	}
}

// Request prompts for approval and returns the operator decision.
func (h *ConsoleApprovalHook) Request(ctx context.Context, req ApprovalRequest) (ApprovalDecision, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "approval required"
	}

	_, _ = fmt.Fprintf(h.out, "\nApproval required for skill %q (urgency: %s)\n", req.SkillName, req.Urgency)
	_, _ = fmt.Fprintf(h.out, "Reason: %s\n", reason)
	_, _ = fmt.Fprint(h.out, h.prompt)

	responseCh := make(chan string, 1)
	go func() {
		line, _ := h.in.ReadString('\n')
		responseCh <- line
	}()

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	select {
	case <-ctx.Done():
		return ApprovalDecision{Approved: false, Comment: "approval cancelled"}, nil
	case line := <-responseCh:
		answer := strings.ToLower(strings.TrimSpace(line))
		if strings.HasPrefix(answer, "y") {
			return ApprovalDecision{Approved: true, ApprovedBy: "operator", Comment: "approved by operator"}, nil
		}
		return ApprovalDecision{Approved: false, ApprovedBy: "operator", Comment: "rejected by operator"}, nil
	}
}

const defaultApprovalTimeout = 60 * time.Second

// PendingApproval is a snapshot of an open approval request.
type PendingApproval struct {
	ID        string
	Request   ApprovalRequest
	CreatedAt time.Time
}

type pendingRecord struct {
	request   ApprovalRequest
	createdAt time.Time
	decision  ApprovalDecision
	done      chan struct{}
}

// AsyncApprovalHook blocks each request until a decision arrives through
// Respond, notifying an external surface (event bus, UI) when a request
// opens. Unanswered requests auto-deny after the configured timeout.
type AsyncApprovalHook struct {
	mu      sync.Mutex
	pending map[string]*pendingRecord
	notify  func(id string, req ApprovalRequest)
	timeout time.Duration
}

// NewAsyncApprovalHook creates an approval hook that surfaces requests via
// notify. Zero timeout means 60s.
func NewAsyncApprovalHook(notify func(id string, req ApprovalRequest), timeout time.Duration) *AsyncApprovalHook {
	if timeout <= 0 {
		timeout = defaultApprovalTimeout
	}
	return &AsyncApprovalHook{
		pending: make(map[string]*pendingRecord),
		notify:  notify,
		timeout: timeout,
	}
}

// Request registers a pending approval and blocks until Respond is called,
// the timeout fires (deny), or the context is cancelled.
func (h *AsyncApprovalHook) Request(ctx context.Context, req ApprovalRequest) (ApprovalDecision, error) {
	id := uuid.NewString()
	record := &pendingRecord{
		request:   req,
		createdAt: time.Now().UTC(),
		done:      make(chan struct{}),
	}
	h.mu.Lock()
	h.pending[id] = record
	h.mu.Unlock()

	if h.notify != nil {
		h.notify(id, req)
	}

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	select {
	case <-record.done:
		h.mu.Lock()
		decision := record.decision
		delete(h.pending, id)
		h.mu.Unlock()
		return decision, nil
	case <-timer.C:
		h.mu.Lock()
		delete(h.pending, id)
		h.mu.Unlock()
		return ApprovalDecision{Approved: false, Comment: "approval timed out"}, nil
	case <-ctx.Done():
		h.mu.Lock()
		delete(h.pending, id)
		h.mu.Unlock()
		return ApprovalDecision{Approved: false, Comment: "approval cancelled"}, ctx.Err()
	}
}

// Respond resolves a pending approval. Unknown ids are ignored.
func (h *AsyncApprovalHook) Respond(id string, decision ApprovalDecision) {
	h.mu.Lock()
	defer h.mu.Unlock()
	record, ok := h.pending[id]
	if !ok {
		return
	}
	record.decision = decision
	select {
	case <-record.done:
	default:
		close(record.done)
	}
}

// Pending returns the open approval requests.
func (h *AsyncApprovalHook) Pending() []PendingApproval {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]PendingApproval, 0, len(h.pending))
	for id, record := range h.pending {
		out = append(out, PendingApproval{
			ID:        id,
			Request:   record.request,
			CreatedAt: record.createdAt,
		})
	}
	return out
}
