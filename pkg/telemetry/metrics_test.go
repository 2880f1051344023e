// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/openclaw/bridge/pkg/errors"
)

func TestNewBridgeMetrics(t *testing.T) {
	bm, err := NewBridgeMetrics()
	if err != nil {
		t.Fatalf("failed to create bridge metrics: %v", err)
	}
	if bm == nil {
		t.Fatal("expected non-nil BridgeMetrics")
	}
}

func TestRecordEvent(t *testing.T) {
	bm, _ := NewBridgeMetrics()
	ctx := context.Background()

	bm.RecordEvent(ctx, "connected")
	bm.RecordEvent(ctx, "tool_start")
	bm.RecordEvent(ctx, "")

	var nilMetrics *BridgeMetrics
	nilMetrics.RecordEvent(ctx, "connected")
}

func TestRecordExecution(t *testing.T) {
	bm, _ := NewBridgeMetrics()
	ctx := context.Background()

	bm.RecordExecution(ctx, "openclaw_web-search", true, "", 120*time.Millisecond, 0.25)
	bm.RecordExecution(ctx, "openclaw_web-search", false, errors.CodeBudgetExceeded, time.Millisecond, 0)

	var nilMetrics *BridgeMetrics
	nilMetrics.RecordExecution(ctx, "openclaw_web-search", true, "", time.Second, 1)
}

func TestRecordReconnect(t *testing.T) {
	bm, _ := NewBridgeMetrics()
	ctx := context.Background()

	bm.RecordReconnect(ctx, 1)
	bm.RecordReconnect(ctx, 2)

	var nilMetrics *BridgeMetrics
	nilMetrics.RecordReconnect(ctx, 1)
}

func TestRecordError(t *testing.T) {
	bm, _ := NewBridgeMetrics()
	ctx := context.Background()

	be := errors.New(errors.CodeNotConnected, "not connected", nil)
	bm.RecordError(ctx, be, "conn")
	bm.RecordError(ctx, context.DeadlineExceeded, "conn")
	bm.RecordError(ctx, nil, "conn")

	var nilMetrics *BridgeMetrics
	nilMetrics.RecordError(ctx, be, "conn")
}
