package conn

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/openclaw/bridge/pkg/errors"
	"github.com/openclaw/bridge/pkg/telemetry"
	"github.com/openclaw/bridge/pkg/wire"
)

// NewRequestID returns a correlation id of the form
// "<unix-nanos>-<12 hex chars>". The nanosecond prefix keeps ids sortable,
// the random suffix keeps two callers in the same nanosecond apart.
func NewRequestID() string {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms; the timestamp
		// alone still yields a usable id.
		return fmt.Sprintf("%d-000000000000", time.Now().UnixNano())
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), hex.EncodeToString(buf[:]))
}

// SendRequest writes req and blocks until the matching reply arrives, the
// request times out, ctx is done, or the connection is torn down. A request
// id is generated when req carries none, and the current session id is
// stamped on when the request carries none of its own.
func (m *Manager) SendRequest(ctx context.Context, req wire.Request) (wire.Frame, error) {
	m.mu.Lock()
	if !m.state.Connected || m.conn == nil {
		m.mu.Unlock()
		return wire.Frame{}, errors.New(errors.CodeNotConnected, "not connected to gateway", nil)
	}
	ws := m.conn
	if req.RequestID == "" {
		req.RequestID = NewRequestID()
	}
	if req.SessionID == "" {
		req.SessionID = m.state.SessionID
	}

	ctx, span := m.tracer.Start(ctx, "Gateway.Request", trace.WithAttributes(
		telemetry.RequestAttributes(req.RequestID, req.Action)...))
	defer span.End()

	p := &pendingRequest{ch: make(chan pendingResult, 1)}
	p.timer = time.AfterFunc(m.cfg.RequestTimeout, func() {
		m.reject(req.RequestID, errors.New(errors.CodeRequestTimeout,
			fmt.Sprintf("request %s timed out after %s", req.RequestID, m.cfg.RequestTimeout), nil).
			WithRecoverable(true))
	})
	m.pending[req.RequestID] = p
	m.mu.Unlock()

	if err := m.writeFrame(ctx, ws, req); err != nil {
		m.reject(req.RequestID, nil) // drop the slot, the caller gets the write error
		return wire.Frame{}, errors.New(errors.CodeNotConnected, "request write failed", err)
	}

	select {
	case res := <-p.ch:
		return res.frame, res.err
	case <-ctx.Done():
		m.reject(req.RequestID, nil)
		return wire.Frame{}, errors.New(errors.CodeRequestTimeout, "request canceled", ctx.Err())
	}
}

// resolve delivers a reply to its waiter. It reports false when no request
// with that id is pending.
func (m *Manager) resolve(frame wire.Frame) bool {
	m.mu.Lock()
	p, ok := m.pending[frame.RequestID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.pending, frame.RequestID)
	m.mu.Unlock()

	p.timer.Stop()
	res := pendingResult{frame: frame}
	if frame.Error != "" {
		res.err = errors.New(errors.CodeExecutionError, frame.Error, nil)
	}
	p.ch <- res
	return true
}

// reject removes a pending request and, when err is non-nil, delivers it to
// the waiter. A nil err silently drops the slot for callers that already
// hold their own error.
func (m *Manager) reject(id string, err error) {
	m.mu.Lock()
	p, ok := m.pending[id]
	if ok {
		delete(m.pending, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	p.timer.Stop()
	if err != nil {
		p.ch <- pendingResult{err: err}
	}
}

// takePendingLocked empties the pending map. Callers hold m.mu.
func (m *Manager) takePendingLocked() map[string]*pendingRequest {
	taken := m.pending
	m.pending = make(map[string]*pendingRequest)
	return taken
}

func rejectAll(pending map[string]*pendingRequest, err error) {
	for _, p := range pending {
		p.timer.Stop()
		p.ch <- pendingResult{err: err}
	}
}

// PendingCount reports how many requests are awaiting replies.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
