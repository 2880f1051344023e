package governance

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"
)

// Policies constrains skill execution. Zero values mean "no limit" for the
// numeric fields and "everything allowed" for the lists.
type Policies struct {
	MaxTotalCost       float64
	MaxCostPerSkill    float64
	Allowlist          []string
	Blocklist          []string
	RequireApproval    []string
	MaxConcurrent      int
	MaxExecutionTime   time.Duration
	AllowExternalData  bool
	AllowSensitiveData bool
}

// PolicyGovernor evaluates Policies, delegates approvals to a hook, and
// writes audit entries to a log. The policy set can be swapped while
// executions are in flight; each Check sees one consistent snapshot.
type PolicyGovernor struct {
	mu       sync.RWMutex
	policies Policies
	approval ApprovalHook
	audit    AuditLog
}

// NewPolicyGovernor builds a governor. A nil hook denies every approval
// request; a nil log drops audit entries.
func NewPolicyGovernor(policies Policies, approval ApprovalHook, audit AuditLog) *PolicyGovernor {
	return &PolicyGovernor{
		policies: policies,
		approval: approval,
		audit:    audit,
	}
}

// Check evaluates the blocklist first, then the allowlist, then the
// approval-required list. List entries are glob patterns.
func (g *PolicyGovernor) Check(_ context.Context, skillName string, _ map[string]any) (CheckResult, error) {
	g.mu.RLock()
	p := g.policies
	g.mu.RUnlock()

	if matchAny(p.Blocklist, skillName) {
		return CheckResult{
			Allowed: false,
			Reason:  fmt.Sprintf("skill %q is blocklisted", skillName),
		}, nil
	}
	if len(p.Allowlist) > 0 && !matchAny(p.Allowlist, skillName) {
		return CheckResult{
			Allowed: false,
			Reason:  fmt.Sprintf("skill %q is not on the allowlist", skillName),
		}, nil
	}
	if matchAny(p.RequireApproval, skillName) {
		return CheckResult{
			Allowed:          true,
			RequiresApproval: true,
			Reason:           fmt.Sprintf("skill %q requires approval", skillName),
		}, nil
	}
	return CheckResult{Allowed: true}, nil
}

// RequestApproval forwards to the configured hook.
func (g *PolicyGovernor) RequestApproval(ctx context.Context, req ApprovalRequest) (ApprovalDecision, error) {
	if g.approval == nil {
		return ApprovalDecision{Approved: false, Comment: "no approval hook configured"}, nil
	}
	return g.approval.Request(ctx, req)
}

// LogAction records the entry on the configured audit log.
func (g *PolicyGovernor) LogAction(ctx context.Context, entry AuditEntry) error {
	if g.audit == nil {
		return nil
	}
	return g.audit.Record(ctx, entry)
}

// Policies returns a copy of the active policy set.
func (g *PolicyGovernor) Policies() Policies {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.policies
}

// UpdatePolicies replaces the active policy set. In-flight checks keep the
// snapshot they started with.
func (g *PolicyGovernor) UpdatePolicies(p Policies) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.policies = p
}

func matchAny(patterns []string, value string) bool {
	for _, pattern := range patterns {
		if matchPattern(pattern, value) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, value string) bool {
	if pattern == "" {
		return false
	}
	ok, err := path.Match(pattern, value)
	if err == nil && ok {
		return true
	}
	return pattern == value
}
