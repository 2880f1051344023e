// Package bridge is the public surface of the gateway client: one Bridge
// owns the connection, the event bus, the skill registry, and the
// governance collaborators, and exposes them to the hosting application.
package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openclaw/bridge/pkg/adapter"
	"github.com/openclaw/bridge/pkg/conn"
	"github.com/openclaw/bridge/pkg/errors"
	"github.com/openclaw/bridge/pkg/events"
	"github.com/openclaw/bridge/pkg/governance"
	"github.com/openclaw/bridge/pkg/progress"
	"github.com/openclaw/bridge/pkg/resilience"
	"github.com/openclaw/bridge/pkg/skills"
	"github.com/openclaw/bridge/pkg/telemetry"
	"github.com/openclaw/bridge/pkg/wire"
)

// Config carries the per-instance settings. Zero timeouts fall back to the
// connection package defaults.
type Config struct {
	GatewayURL     string
	AuthToken      string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	Reconnect      bool
	Backoff        resilience.BackoffPolicy

	// Identity stamped onto every skill execution context.
	UserID  string
	AgentID string
	TeamID  string

	// Policies snapshotted into remote call contexts. Governance itself is
	// enforced by the injected Governor.
	Policies *governance.Policies
}

// Bridge is an explicit, constructor-injected instance. Applications own as
// many as they need; there is no process-wide singleton.
type Bridge struct {
	cfg    Config
	logger *slog.Logger

	bus      *events.Bus
	manager  *conn.Manager
	registry *adapter.Registry
	adapter  *adapter.Adapter
	tracker  *progress.Tracker

	governor governance.Governor
	costs    governance.CostTracker
	memory   governance.Memory
	metrics  *telemetry.BridgeMetrics

	statsMu         sync.Mutex
	eventsProcessed uint64
	toolsExecuted   uint64
	toolsSucceeded  uint64
	toolsFailed     uint64
	totalDuration   time.Duration
	totalCost       float64
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithGovernor sets the policy/approval/audit collaborator.
func WithGovernor(g governance.Governor) Option {
	return func(b *Bridge) { b.governor = g }
}

// WithCostTracker replaces the default session cost tracker.
func WithCostTracker(ct governance.CostTracker) Option {
	return func(b *Bridge) { b.costs = ct }
}

// WithMemory replaces the default execution memory.
func WithMemory(m governance.Memory) Option {
	return func(b *Bridge) { b.memory = m }
}

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// WithMetrics attaches the OpenTelemetry instruments.
func WithMetrics(m *telemetry.BridgeMetrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// New builds a bridge ready to Connect.
func New(cfg Config, opts ...Option) *Bridge {
	b := &Bridge{
		cfg:      cfg,
		logger:   slog.Default(),
		registry: adapter.NewRegistry(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.costs == nil {
		maxTotal := 0.0
		if cfg.Policies != nil {
			maxTotal = cfg.Policies.MaxTotalCost
		}
		b.costs = governance.NewSessionCostTracker(maxTotal)
	}
	if b.memory == nil {
		b.memory = governance.NewExecutionMemory(100)
	}

	b.bus = events.NewBus(b.logger)
	b.tracker = progress.NewTracker()
	b.manager = conn.NewManager(conn.Config{
		URL:            cfg.GatewayURL,
		AuthToken:      cfg.AuthToken,
		ConnectTimeout: cfg.ConnectTimeout,
		RequestTimeout: cfg.RequestTimeout,
		Reconnect:      cfg.Reconnect,
		Backoff:        cfg.Backoff,
	}, b.bus, b.logger)

	b.adapter = adapter.New(b.manager,
		adapter.WithGovernor(b.governor),
		adapter.WithCostTracker(b.costs),
		adapter.WithMemory(b.memory),
		adapter.WithBus(b.bus),
		adapter.WithLogger(b.logger),
	)

	b.bus.On(events.EventAny, func(e events.Event) {
		b.statsMu.Lock()
		b.eventsProcessed++
		b.statsMu.Unlock()
		b.metrics.RecordEvent(context.Background(), string(e.Type))
	})
	b.bus.On(events.EventReconnecting, func(e events.Event) {
		attempt, _ := e.Payload["attempt"].(int)
		b.metrics.RecordReconnect(context.Background(), attempt)
	})

	return b
}

// Connect opens the gateway connection.
func (b *Bridge) Connect(ctx context.Context) error {
	return b.manager.Connect(ctx)
}

// Disconnect closes the connection and rejects outstanding requests.
func (b *Bridge) Disconnect() {
	b.manager.Disconnect()
}

// Cancel is the cancellation primitive; it is equivalent to Disconnect.
func (b *Bridge) Cancel() {
	b.Disconnect()
}

// IsConnected reports whether the gateway connection is open.
func (b *Bridge) IsConnected() bool {
	return b.manager.IsConnected()
}

// State returns a snapshot of the connection state.
func (b *Bridge) State() conn.State {
	return b.manager.State()
}

// SendMessage sends a free-form message and waits for the gateway reply.
func (b *Bridge) SendMessage(ctx context.Context, text string, extra map[string]any) (map[string]any, error) {
	frame, err := b.manager.SendRequest(ctx, wire.Request{
		Action:  wire.ActionMessage,
		Message: text,
		Context: extra,
	})
	if err != nil {
		b.metrics.RecordError(ctx, err, "bridge")
		return nil, err
	}
	return frame.DataMap(), nil
}

// RegisterSkillFromDocument parses a skill document, adapts it, and stores it
// in the registry. Re-registering a skill replaces the previous entry.
func (b *Bridge) RegisterSkillFromDocument(doc string, opts adapter.Options) (*adapter.AdaptedSkill, error) {
	spec, err := skills.Parse(doc)
	if err != nil {
		return nil, err
	}
	adapted := b.adapter.Adapt(spec, opts)
	b.registry.Register(adapted)
	b.logger.Info("skill registered", "id", adapted.ID, "tools", adapted.Tools)
	return adapted, nil
}

// RegisterSkillsFromDir loads every SKILL.md under root and registers it.
func (b *Bridge) RegisterSkillsFromDir(root string, opts adapter.Options) (int, error) {
	specs, err := skills.LoadDir(root)
	if err != nil {
		return 0, err
	}
	for _, spec := range specs {
		adapted := b.adapter.Adapt(spec, opts)
		b.registry.Register(adapted)
	}
	return len(specs), nil
}

// ListSkills returns the registered skills ordered by id.
func (b *Bridge) ListSkills() []*adapter.AdaptedSkill {
	return b.registry.List()
}

// GetSkill looks a skill up by bare name or prefixed id.
func (b *Bridge) GetSkill(name string) (*adapter.AdaptedSkill, bool) {
	return b.registry.GetByName(name)
}

// InvokeSkill executes a registered skill through the pipeline and folds the
// outcome into the bridge stats. An unknown name yields a failed Result, not
// an error, matching the pipeline's never-throw contract.
func (b *Bridge) InvokeSkill(ctx context.Context, name string, params map[string]any) adapter.Result {
	skill, ok := b.registry.GetByName(name)
	if !ok {
		return adapter.Result{
			Success: false,
			Code:    errors.CodeExecutionError,
			Error:   "unknown skill: " + name,
		}
	}

	res := skill.Execute(ctx, params, adapter.ExecutionContext{
		UserID:   b.cfg.UserID,
		AgentID:  b.cfg.AgentID,
		TeamID:   b.cfg.TeamID,
		Policies: b.cfg.Policies,
	})

	b.statsMu.Lock()
	b.toolsExecuted++
	if res.Success {
		b.toolsSucceeded++
	} else {
		b.toolsFailed++
	}
	b.totalDuration += res.Duration
	b.totalCost += res.Cost
	b.statsMu.Unlock()

	b.metrics.RecordExecution(ctx, skill.ID, res.Success, res.Code, res.Duration, res.Cost)
	return res
}

// On registers an event handler.
func (b *Bridge) On(name events.EventType, handler events.Handler) *events.Subscription {
	return b.bus.On(name, handler)
}

// Once registers a handler that fires at most once.
func (b *Bridge) Once(name events.EventType, handler events.Handler) *events.Subscription {
	return b.bus.Once(name, handler)
}

// Off removes a subscription.
func (b *Bridge) Off(sub *events.Subscription) {
	b.bus.Off(sub)
}

// Progress exposes the task progress tracker.
func (b *Bridge) Progress() *progress.Tracker {
	return b.tracker
}

// Stats is a snapshot of bridge activity counters.
type Stats struct {
	EventsProcessed uint64
	ToolsExecuted   uint64
	ToolsSucceeded  uint64
	ToolsFailed     uint64
	TotalDuration   time.Duration
	TotalCost       float64
	SuccessRate     float64
	AvgDuration     time.Duration
}

// Stats returns the current activity counters.
func (b *Bridge) Stats() Stats {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	s := Stats{
		EventsProcessed: b.eventsProcessed,
		ToolsExecuted:   b.toolsExecuted,
		ToolsSucceeded:  b.toolsSucceeded,
		ToolsFailed:     b.toolsFailed,
		TotalDuration:   b.totalDuration,
		TotalCost:       b.totalCost,
	}
	if s.ToolsExecuted > 0 {
		s.SuccessRate = float64(s.ToolsSucceeded) / float64(s.ToolsExecuted)
		s.AvgDuration = s.TotalDuration / time.Duration(s.ToolsExecuted)
	}
	return s
}

// Reset disconnects, clears the remote session, and resets the local
// memory and cost-session state. Registered skills survive a reset.
func (b *Bridge) Reset(ctx context.Context) {
	b.manager.Disconnect()
	if r, ok := b.costs.(interface{ Reset() }); ok {
		r.Reset()
	}
	if r, ok := b.memory.(interface{ Reset() }); ok {
		r.Reset()
	}
	b.statsMu.Lock()
	b.eventsProcessed = 0
	b.toolsExecuted = 0
	b.toolsSucceeded = 0
	b.toolsFailed = 0
	b.totalDuration = 0
	b.totalCost = 0
	b.statsMu.Unlock()
	b.logger.InfoContext(ctx, "bridge state reset")
}
