// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/openclaw/bridge/pkg/errors"
)

// BridgeMetrics tracks connection and skill execution activity. All methods
// are nil-receiver safe so callers never need to guard instrumentation.
type BridgeMetrics struct {
	// eventsTotal counts bus events by type.
	eventsTotal metric.Int64Counter

	// executionsTotal counts skill executions by skill, success, and code.
	executionsTotal metric.Int64Counter

	// executionDuration records execution latency in milliseconds.
	executionDuration metric.Float64Histogram

	// costTotal accumulates reported skill cost.
	costTotal metric.Float64Counter

	// reconnectsTotal counts reconnect attempts.
	reconnectsTotal metric.Int64Counter

	// errorsTotal counts typed errors by code and component.
	errorsTotal metric.Int64Counter
}

// NewBridgeMetrics creates the bridge instruments on the global meter.
func NewBridgeMetrics() (*BridgeMetrics, error) {
	meter := otel.Meter("openclaw/bridge")

	eventsTotal, err := meter.Int64Counter(
		"bridge.events.total",
		metric.WithDescription("Bus events by type"),
	)
	if err != nil {
		return nil, err
	}

	executionsTotal, err := meter.Int64Counter(
		"bridge.skills.executions",
		metric.WithDescription("Skill executions by skill, success, and error code"),
	)
	if err != nil {
		return nil, err
	}

	executionDuration, err := meter.Float64Histogram(
		"bridge.skills.duration_ms",
		metric.WithDescription("Skill execution latency in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	costTotal, err := meter.Float64Counter(
		"bridge.skills.cost",
		metric.WithDescription("Accumulated reported skill cost"),
	)
	if err != nil {
		return nil, err
	}

	reconnectsTotal, err := meter.Int64Counter(
		"bridge.connection.reconnects",
		metric.WithDescription("Reconnect attempts"),
	)
	if err != nil {
		return nil, err
	}

	errorsTotal, err := meter.Int64Counter(
		"bridge.errors.total",
		metric.WithDescription("Typed errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	return &BridgeMetrics{
		eventsTotal:       eventsTotal,
		executionsTotal:   executionsTotal,
		executionDuration: executionDuration,
		costTotal:         costTotal,
		reconnectsTotal:   reconnectsTotal,
		errorsTotal:       errorsTotal,
	}, nil
}

// RecordEvent counts one bus event.
func (bm *BridgeMetrics) RecordEvent(ctx context.Context, eventType string) {
	if bm == nil {
		return
	}
	bm.eventsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String(AttrEventType, eventType)),
	)
}

// RecordExecution records one skill execution attempt and its latency. A
// failed attempt additionally carries its error code.
func (bm *BridgeMetrics) RecordExecution(ctx context.Context, skillID string, success bool, code errors.ErrorCode, duration time.Duration, cost float64) {
	if bm == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(AttrSkillID, skillID),
		attribute.Bool(AttrSkillSuccess, success),
	}
	if !success && code != "" {
		attrs = append(attrs, attribute.String(AttrErrorCode, string(code)))
	}
	bm.executionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	bm.executionDuration.Record(ctx, float64(duration.Milliseconds()),
		metric.WithAttributes(attribute.String(AttrSkillID, skillID)),
	)
	if cost > 0 {
		bm.costTotal.Add(ctx, cost,
			metric.WithAttributes(attribute.String(AttrSkillID, skillID)),
		)
	}
}

// RecordReconnect counts one reconnect attempt.
func (bm *BridgeMetrics) RecordReconnect(ctx context.Context, attempt int) {
	if bm == nil {
		return
	}
	bm.reconnectsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.Int(AttrReconnectAttempt, attempt)),
	)
}

// RecordError counts a typed error against a component.
func (bm *BridgeMetrics) RecordError(ctx context.Context, err error, component string) {
	if bm == nil || err == nil {
		return
	}
	be := errors.AsBridgeError(err)
	bm.errorsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(AttrErrorCode, string(be.Code)),
			attribute.String(AttrComponent, component),
			attribute.Bool(AttrErrorRecoverable, be.Recoverable),
		),
	)
}
