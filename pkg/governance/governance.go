// Package governance defines the collaborator interfaces the skill pipeline
// consumes (policy checks, human approval, cost tracking, execution memory,
// audit logging) together with default implementations.
package governance

import (
	"context"
	"time"
)

// CheckResult is the outcome of a policy evaluation.
type CheckResult struct {
	Allowed          bool
	RequiresApproval bool
	Reason           string
}

// ApprovalRequest asks a human reviewer to allow a skill invocation.
type ApprovalRequest struct {
	SkillName string
	Params    map[string]any
	Reason    string
	Urgency   string
}

// ApprovalDecision is the reviewer's answer.
type ApprovalDecision struct {
	Approved   bool
	ApprovedBy string
	Comment    string
}

// AuditEntry records one invocation attempt and its outcome. Entries are
// immutable once written.
type AuditEntry struct {
	Action    string
	Params    map[string]any
	Outcome   string
	Duration  time.Duration
	Cost      float64
	Success   bool
	Timestamp time.Time
}

// Governor evaluates policy, brokers approvals, and records audit entries.
type Governor interface {
	Check(ctx context.Context, skillName string, params map[string]any) (CheckResult, error)
	RequestApproval(ctx context.Context, req ApprovalRequest) (ApprovalDecision, error)
	LogAction(ctx context.Context, entry AuditEntry) error
}

// CostTracker estimates and accounts for skill execution cost.
type CostTracker interface {
	EstimateCost(ctx context.Context, skillName string, params map[string]any) (float64, error)
	RecordCost(ctx context.Context, skillName string, actual float64) error
	CheckBudget(ctx context.Context, estimated float64) (bool, error)
	CurrentSpent(ctx context.Context) float64
}

// Memory records executions and surfaces relevant context for new ones.
type Memory interface {
	Record(ctx context.Context, skillName string, params map[string]any, result any) error
	RelevantContext(ctx context.Context, query string) (string, error)
}

// ApprovalHook answers approval requests. Implementations may block until a
// human decides or the context is cancelled.
type ApprovalHook interface {
	Request(ctx context.Context, req ApprovalRequest) (ApprovalDecision, error)
}

// AuditLog persists audit entries.
type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// AuditFilter narrows an audit log query.
type AuditFilter struct {
	Action  string
	Success *bool
	Since   time.Time
	Limit   int
}
