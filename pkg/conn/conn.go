// Package conn owns the duplex gateway connection: dial, auth, reconnect
// with backoff, and the request/response correlation layer on top of it.
package conn

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/openclaw/bridge/pkg/errors"
	"github.com/openclaw/bridge/pkg/events"
	"github.com/openclaw/bridge/pkg/resilience"
	"github.com/openclaw/bridge/pkg/telemetry"
	"github.com/openclaw/bridge/pkg/wire"
)

const (
	// DefaultConnectTimeout bounds the websocket dial.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultRequestTimeout bounds each pending request.
	DefaultRequestTimeout = 60 * time.Second
)

// Config controls the connection manager.
type Config struct {
	// URL of the gateway websocket endpoint.
	URL string

	// AuthToken, when set, is sent as the first frame after the dial.
	AuthToken string

	// ConnectTimeout bounds the dial. Zero means DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// RequestTimeout bounds each pending request. Zero means DefaultRequestTimeout.
	RequestTimeout time.Duration

	// Reconnect enables automatic reconnection after an unexpected close.
	Reconnect bool

	// Backoff policy for the reconnect loop.
	Backoff resilience.BackoffPolicy
}

// State is a snapshot of the connection. It is mutated only by the manager
// and read by everything else.
type State struct {
	Connected         bool
	Connecting        bool
	SessionID         string
	LastConnectedAt   time.Time
	LastDisconnected  time.Time
	ReconnectAttempts int
	LastError         string
}

type pendingResult struct {
	frame wire.Frame
	err   error
}

type pendingRequest struct {
	ch    chan pendingResult
	timer *time.Timer
}

// Manager owns the socket lifecycle and the pending request map.
type Manager struct {
	cfg    Config
	bus    *events.Bus
	logger *slog.Logger
	tracer trace.Tracer

	mu             sync.Mutex
	conn           *websocket.Conn
	state          State
	manualClose    bool
	readCancel     context.CancelFunc
	reconnectTimer *time.Timer
	pending        map[string]*pendingRequest

	writeMu sync.Mutex
}

// NewManager creates a manager publishing lifecycle events on bus.
func NewManager(cfg Config, bus *events.Bus, logger *slog.Logger) *Manager {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Backoff == (resilience.BackoffPolicy{}) {
		cfg.Backoff = resilience.DefaultBackoffPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:     cfg,
		bus:     bus,
		logger:  logger,
		tracer:  otel.Tracer("openclaw/conn"),
		pending: make(map[string]*pendingRequest),
	}
}

// Connect opens the transport. It is a no-op when already connected or
// connecting. The dial is bounded by the configured connection timeout.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Connected || m.state.Connecting {
		m.mu.Unlock()
		return nil
	}
	m.state.Connecting = true
	m.manualClose = false
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	m.mu.Unlock()

	m.emit(events.EventConnecting, nil)
	return m.dial(ctx)
}

func (m *Manager) dial(ctx context.Context) error {
	m.mu.Lock()
	attempt := m.state.ReconnectAttempts
	sessionID := m.state.SessionID
	m.mu.Unlock()

	ctx, span := m.tracer.Start(ctx, "Gateway.Connect", trace.WithAttributes(
		telemetry.ConnectionAttributes(m.cfg.URL, sessionID, attempt)...))
	defer span.End()

	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	ws, _, err := websocket.Dial(dialCtx, m.cfg.URL, nil)
	if err != nil {
		connErr := errors.New(errors.CodeConnectionTimeout, "gateway dial failed", err).
			WithRecoverable(true)
		m.mu.Lock()
		m.state.Connecting = false
		m.state.LastError = connErr.Error()
		m.mu.Unlock()
		return connErr
	}

	if m.cfg.AuthToken != "" {
		auth := wire.Request{Action: wire.ActionAuth, Token: m.cfg.AuthToken}
		if err := m.writeFrame(dialCtx, ws, auth); err != nil {
			_ = ws.Close(websocket.StatusInternalError, "auth write failed")
			m.mu.Lock()
			m.state.Connecting = false
			m.state.LastError = err.Error()
			m.mu.Unlock()
			return errors.New(errors.CodeConnectionTimeout, "auth frame write failed", err)
		}
	}

	readCtx, readCancel := context.WithCancel(context.Background())

	m.mu.Lock()
	// A Disconnect issued while the dial was in flight wins; the socket is
	// discarded instead of committed.
	if m.manualClose {
		m.state.Connecting = false
		m.mu.Unlock()
		readCancel()
		_ = ws.Close(websocket.StatusNormalClosure, "client disconnect")
		return errors.New(errors.CodeNotConnected, "disconnected during dial", nil)
	}
	m.conn = ws
	m.readCancel = readCancel
	m.state.Connected = true
	m.state.Connecting = false
	m.state.LastConnectedAt = time.Now().UTC()
	m.state.ReconnectAttempts = 0
	m.state.LastError = ""
	sessionID = m.state.SessionID
	m.mu.Unlock()

	go m.readLoop(readCtx, ws)

	m.emitWithSession(events.EventConnected, sessionID, nil)
	m.logger.InfoContext(ctx, "gateway connected", "url", m.cfg.URL)
	return nil
}

// Disconnect closes the socket with a normal-closure code, cancels any
// pending reconnect, clears the session id, and rejects every outstanding
// request with a connection-closed error.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.manualClose = true
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	if m.readCancel != nil {
		m.readCancel()
		m.readCancel = nil
	}
	ws := m.conn
	m.conn = nil
	wasConnected := m.state.Connected
	m.state.Connected = false
	m.state.Connecting = false
	m.state.SessionID = ""
	m.state.LastDisconnected = time.Now().UTC()
	pending := m.takePendingLocked()
	m.mu.Unlock()

	if ws != nil {
		_ = ws.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	rejectAll(pending, errors.New(errors.CodeNotConnected, "connection closed", nil))

	if wasConnected {
		m.emit(events.EventDisconnected, map[string]any{"reason": "client disconnect"})
	}
}

// IsConnected reports whether the socket is open.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Connected
}

// State returns a snapshot of the connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SessionID returns the session identifier assigned by the gateway, if any.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.SessionID
}

func (m *Manager) readLoop(ctx context.Context, ws *websocket.Conn) {
	for {
		_, raw, err := ws.Read(ctx)
		if err != nil {
			m.handleClosed(ctx, err)
			return
		}
		frame, err := wire.Decode(raw)
		if err != nil {
			// Malformed frames are surfaced as error events, never fatal.
			m.logger.Warn("dropping malformed inbound frame", "error", err)
			m.emit(events.EventError, map[string]any{
				"code":    string(errors.CodeParseError),
				"message": err.Error(),
			})
			continue
		}
		m.handleFrame(frame)
	}
}

func (m *Manager) handleFrame(frame wire.Frame) {
	if frame.SessionID != "" {
		m.mu.Lock()
		m.state.SessionID = frame.SessionID
		m.mu.Unlock()
	}

	if frame.IsReply() {
		if m.resolve(frame) {
			return
		}
		// A reply nobody is waiting for is still observable.
		m.logger.Debug("reply without pending request", "request_id", frame.RequestID)
	}

	eventType := events.EventType(frame.Type)
	if frame.Type == "" {
		eventType = events.EventAny
	}
	m.emitWithSession(eventType, frame.SessionID, frame.DataMap())
}

// handleClosed runs when the read loop exits. Manual disconnects were already
// handled; an unexpected close marks the state and enters the reconnect loop.
// Outstanding requests are left to their own timeouts.
func (m *Manager) handleClosed(ctx context.Context, cause error) {
	if ctx.Err() != nil {
		return
	}
	m.mu.Lock()
	if m.manualClose {
		m.mu.Unlock()
		return
	}
	wasConnected := m.state.Connected
	m.conn = nil
	m.state.Connected = false
	m.state.LastDisconnected = time.Now().UTC()
	m.state.LastError = cause.Error()
	m.mu.Unlock()

	if !wasConnected {
		return
	}
	m.logger.Warn("gateway connection lost", "error", cause)
	m.emit(events.EventDisconnected, map[string]any{"reason": cause.Error()})

	if m.cfg.Reconnect {
		m.scheduleReconnect()
	}
}

func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if m.manualClose {
		m.mu.Unlock()
		return
	}
	m.state.ReconnectAttempts++
	attempt := m.state.ReconnectAttempts
	if m.cfg.Backoff.Exhausted(attempt) {
		m.mu.Unlock()
		m.logger.Error("reconnect attempts exhausted", "attempts", attempt-1)
		m.emit(events.EventReconnectFailed, map[string]any{"attempts": attempt - 1})
		return
	}
	delay := m.cfg.Backoff.Delay(attempt)
	m.reconnectTimer = time.AfterFunc(delay, func() { m.reconnect(attempt) })
	m.mu.Unlock()

	m.logger.Info("scheduling reconnect", "attempt", attempt, "delay", delay)
	m.emit(events.EventReconnecting, map[string]any{
		"attempt": attempt,
		"delay":   delay.String(),
	})
}

func (m *Manager) reconnect(attempt int) {
	m.mu.Lock()
	if m.manualClose || m.state.Connected || m.state.Connecting {
		m.mu.Unlock()
		return
	}
	m.state.Connecting = true
	m.mu.Unlock()

	if err := m.dial(context.Background()); err != nil {
		m.logger.Warn("reconnect attempt failed", "attempt", attempt, "error", err)
		m.scheduleReconnect()
	}
}

func (m *Manager) writeFrame(ctx context.Context, ws *websocket.Conn, req wire.Request) error {
	data, err := wire.Encode(req)
	if err != nil {
		return err
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return ws.Write(ctx, websocket.MessageText, data)
}

func (m *Manager) emit(eventType events.EventType, payload map[string]any) {
	m.emitWithSession(eventType, m.SessionID(), payload)
}

func (m *Manager) emitWithSession(eventType events.EventType, sessionID string, payload map[string]any) {
	if m.bus == nil {
		return
	}
	m.bus.Emit(events.New(eventType, sessionID, payload))
}
