// SPDX-License-Identifier: Apache-2.0
// Package adapter wraps parsed skills in a local invocation contract that
// runs governance, approval, budget, and audit around every remote call.
package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/openclaw/bridge/pkg/errors"
	"github.com/openclaw/bridge/pkg/events"
	"github.com/openclaw/bridge/pkg/governance"
	"github.com/openclaw/bridge/pkg/skills"
	"github.com/openclaw/bridge/pkg/telemetry"
	"github.com/openclaw/bridge/pkg/wire"
)

// IDPrefix namespaces adapted skill ids.
const IDPrefix = "openclaw_"

// Transport sends a framed request and blocks for the correlated reply.
type Transport interface {
	SendRequest(ctx context.Context, req wire.Request) (wire.Frame, error)
}

// Options tune one adapted skill.
type Options struct {
	// RequiresApproval forces the approval gate even when policy does not.
	RequiresApproval bool

	// EstimatedCost is the fallback estimate when the cost tracker has none.
	EstimatedCost float64
}

// ExecutionContext identifies the caller on whose behalf a skill runs.
type ExecutionContext struct {
	UserID  string
	AgentID string
	TeamID  string

	// Policies, when set, is snapshotted into the remote call context.
	Policies *governance.Policies
}

// Result is the uniform outcome of a skill execution attempt. Execute always
// returns one; failures are carried in Error and Code, never raised.
type Result struct {
	Success   bool
	Data      map[string]any
	Error     string
	Code      errors.ErrorCode
	Duration  time.Duration
	Cost      float64
	ToolsUsed []string
}

// Adapter binds skills to a transport and the governance collaborators.
type Adapter struct {
	transport Transport
	governor  governance.Governor
	costs     governance.CostTracker
	memory    governance.Memory
	bus       *events.Bus
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithGovernor sets the policy/approval/audit collaborator.
func WithGovernor(g governance.Governor) Option {
	return func(a *Adapter) { a.governor = g }
}

// WithCostTracker sets the budget collaborator.
func WithCostTracker(ct governance.CostTracker) Option {
	return func(a *Adapter) { a.costs = ct }
}

// WithMemory sets the execution memory collaborator.
func WithMemory(m governance.Memory) Option {
	return func(a *Adapter) { a.memory = m }
}

// WithBus sets the bus on which tool lifecycle events are published.
func WithBus(bus *events.Bus) Option {
	return func(a *Adapter) { a.bus = bus }
}

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// New creates an adapter. Collaborators left unset degrade gracefully:
// no governor means no checks, no cost tracker means no budget, no memory
// means no recall.
func New(transport Transport, opts ...Option) *Adapter {
	a := &Adapter{
		transport: transport,
		logger:    slog.Default(),
		tracer:    otel.Tracer("openclaw/adapter"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AdaptedSkill is an immutable, executable wrapper around a parsed skill.
// Re-adapting a skill replaces its registry entry rather than mutating it.
type AdaptedSkill struct {
	ID               string
	Spec             skills.Spec
	Tools            []string
	RequiresApproval bool
	EstimatedCost    float64

	adapter *Adapter
}

// Adapt wraps spec with the pipeline. The id is stable per skill name.
func (a *Adapter) Adapt(spec skills.Spec, opts Options) *AdaptedSkill {
	return &AdaptedSkill{
		ID:               IDPrefix + spec.Name,
		Spec:             spec,
		Tools:            spec.ToolNames(),
		RequiresApproval: opts.RequiresApproval,
		EstimatedCost:    opts.EstimatedCost,
		adapter:          a,
	}
}

// Execute runs the pipeline: governance check, approval gate, budget check,
// context build, remote invoke, post-invocation recording. It never panics
// out and never returns a Go error; every outcome lands in the Result, and
// exactly one audit entry is written per attempt.
func (s *AdaptedSkill) Execute(ctx context.Context, params map[string]any, execCtx ExecutionContext) (res Result) {
	a := s.adapter
	start := time.Now()

	ctx, span := a.tracer.Start(ctx, "Skill.Execute", trace.WithAttributes(
		telemetry.SkillAttributes(s.ID, s.Spec.Name, s.Tools)...))

	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Success: false,
				Code:    errors.CodeExecutionError,
				Error:   fmt.Sprintf("skill execution panicked: %v", r),
			}
			a.logger.ErrorContext(ctx, "skill execution panicked", "skill", s.ID, "panic", r)
		}
		res.Duration = time.Since(start)
		span.SetAttributes(telemetry.SkillOutcomeAttributes(
			res.Success, float64(res.Duration.Milliseconds()), res.Cost)...)
		span.End()
		a.audit(ctx, s, params, res)
		a.emitToolEnd(s, res)
	}()

	a.emitToolStart(s, params)

	// Governance check. A collaborator failure allows the call but is
	// logged loudly; see the fail-open note in DESIGN.md.
	check := governance.CheckResult{Allowed: true}
	if a.governor != nil {
		c, err := a.governor.Check(ctx, s.Spec.Name, params)
		if err != nil {
			a.logger.WarnContext(ctx, "governance check errored, allowing execution",
				"skill", s.ID, "error", err)
		} else {
			check = c
		}
	}
	span.SetAttributes(telemetry.PolicyAttributes(
		check.Allowed, check.RequiresApproval || s.RequiresApproval, check.Reason)...)
	if !check.Allowed {
		return failure(errors.CodeGovernanceDenied, orDefault(check.Reason, "denied by policy"))
	}

	// Approval gate. Unlike the check, approval fails closed.
	if check.RequiresApproval || s.RequiresApproval {
		if a.governor == nil {
			return failure(errors.CodeApprovalDenied, "approval required but no approver configured")
		}
		decision, err := a.governor.RequestApproval(ctx, governance.ApprovalRequest{
			SkillName: s.Spec.Name,
			Params:    params,
			Reason:    orDefault(check.Reason, "approval required by policy"),
			Urgency:   "normal",
		})
		if err != nil {
			return failure(errors.CodeApprovalDenied, "approval request failed: "+err.Error())
		}
		span.SetAttributes(telemetry.ApprovalAttributes(decision.Approved, decision.ApprovedBy)...)
		if !decision.Approved {
			return failure(errors.CodeApprovalDenied, orDefault(decision.Comment, "approval denied"))
		}
	}

	// Budget check, before any remote traffic.
	estimate := s.EstimatedCost
	if a.costs != nil {
		e, err := a.costs.EstimateCost(ctx, s.Spec.Name, params)
		if err != nil {
			a.logger.WarnContext(ctx, "cost estimate failed, using configured estimate",
				"skill", s.ID, "error", err)
		} else if e > 0 {
			estimate = e
		}
		fits, err := a.costs.CheckBudget(ctx, estimate)
		if err != nil {
			a.logger.WarnContext(ctx, "budget check errored, allowing execution",
				"skill", s.ID, "error", err)
		} else if !fits {
			return failure(errors.CodeBudgetExceeded,
				fmt.Sprintf("estimated cost %.4f exceeds remaining budget", estimate))
		}
	}

	callCtx := a.buildContext(ctx, s, execCtx)

	frame, err := a.transport.SendRequest(ctx, wire.Request{
		Action:  wire.ActionInvokeSkill,
		Skill:   s.Spec.Name,
		Params:  params,
		Context: callCtx,
	})
	if err != nil {
		be := errors.AsBridgeError(err)
		code := be.Code
		if code == errors.CodeInternal {
			code = errors.CodeExecutionError
		}
		res = failure(code, be.Message+causeSuffix(be))
		// Failed invocations are remembered too; recall should surface what
		// went wrong last time, not only what worked.
		a.recordMemory(ctx, s, params, map[string]any{"error": res.Error, "code": string(res.Code)})
		return res
	}

	res = Result{Success: true, Data: frame.DataMap()}
	res.Cost = reportedCost(res.Data)
	res.ToolsUsed = reportedTools(res.Data)

	if a.costs != nil && res.Cost > 0 {
		if err := a.costs.RecordCost(ctx, s.Spec.Name, res.Cost); err != nil {
			a.logger.WarnContext(ctx, "cost record failed", "skill", s.ID, "error", err)
		}
	}
	a.recordMemory(ctx, s, params, res.Data)
	return res
}

func (a *Adapter) recordMemory(ctx context.Context, s *AdaptedSkill, params map[string]any, result any) {
	if a.memory == nil {
		return
	}
	if err := a.memory.Record(ctx, s.Spec.Name, params, result); err != nil {
		a.logger.WarnContext(ctx, "memory record failed", "skill", s.ID, "error", err)
	}
}

func (a *Adapter) buildContext(ctx context.Context, s *AdaptedSkill, execCtx ExecutionContext) map[string]any {
	callCtx := map[string]any{}
	if execCtx.UserID != "" {
		callCtx["userId"] = execCtx.UserID
	}
	if execCtx.AgentID != "" {
		callCtx["agentId"] = execCtx.AgentID
	}
	if execCtx.TeamID != "" {
		callCtx["teamId"] = execCtx.TeamID
	}
	if a.memory != nil {
		snippets, err := a.memory.RelevantContext(ctx, s.Spec.Name)
		if err != nil {
			a.logger.Warn("memory recall failed", "skill", s.ID, "error", err)
		} else if snippets != "" {
			callCtx["memory"] = snippets
		}
	}
	if execCtx.Policies != nil {
		callCtx["policies"] = map[string]any{
			"maxTotalCost":     execCtx.Policies.MaxTotalCost,
			"maxCostPerSkill":  execCtx.Policies.MaxCostPerSkill,
			"maxExecutionTime": execCtx.Policies.MaxExecutionTime.String(),
		}
	}
	if a.costs != nil {
		callCtx["spentSoFar"] = a.costs.CurrentSpent(ctx)
	}
	return callCtx
}

func (a *Adapter) audit(ctx context.Context, s *AdaptedSkill, params map[string]any, res Result) {
	if a.governor == nil {
		return
	}
	outcome := "ok"
	if !res.Success {
		outcome = res.Error
	}
	entry := governance.AuditEntry{
		Action:    s.ID,
		Params:    params,
		Outcome:   outcome,
		Duration:  res.Duration,
		Cost:      res.Cost,
		Success:   res.Success,
		Timestamp: time.Now().UTC(),
	}
	if err := a.governor.LogAction(ctx, entry); err != nil {
		a.logger.Warn("audit write failed", "skill", s.ID, "error", err)
	}
}

func (a *Adapter) emitToolStart(s *AdaptedSkill, params map[string]any) {
	if a.bus == nil {
		return
	}
	a.bus.Emit(events.New(events.EventToolStart, "", map[string]any{
		"skill":  s.ID,
		"params": params,
	}))
}

func (a *Adapter) emitToolEnd(s *AdaptedSkill, res Result) {
	if a.bus == nil {
		return
	}
	payload := map[string]any{
		"skill":    s.ID,
		"success":  res.Success,
		"duration": res.Duration.String(),
	}
	if !res.Success {
		payload["code"] = string(res.Code)
	}
	a.bus.Emit(events.New(events.EventToolEnd, "", payload))
}

func failure(code errors.ErrorCode, msg string) Result {
	return Result{Success: false, Code: code, Error: msg}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func causeSuffix(be *errors.BridgeError) string {
	if be.Err == nil {
		return ""
	}
	return ": " + be.Err.Error()
}

func reportedCost(data map[string]any) float64 {
	if data == nil {
		return 0
	}
	if c, ok := data["cost"].(float64); ok && c > 0 {
		return c
	}
	return 0
}

func reportedTools(data map[string]any) []string {
	if data == nil {
		return nil
	}
	raw, ok := data["toolsUsed"].([]any)
	if !ok {
		return nil
	}
	tools := make([]string, 0, len(raw))
	for _, t := range raw {
		if name, ok := t.(string); ok {
			tools = append(tools, name)
		}
	}
	if len(tools) == 0 {
		return nil
	}
	return tools
}
