package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithExecutionID(ctx, "sched-1")
	ctx = WithOwnerID(ctx, "owner-1")

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "sched-1", ExecutionID(ctx))
	assert.Equal(t, "owner-1", OwnerID(ctx))
}

func TestContextEmpty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, ExecutionID(ctx))
	assert.Empty(t, OwnerID(ctx))
}

func TestCorrelationHandler_InjectsIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithRequestID(context.Background(), "req-42")
	ctx = WithExecutionID(ctx, "sched-42")

	logger.InfoContext(ctx, "hello")

	out := buf.String()
	require.Contains(t, out, "request_id=req-42")
	require.Contains(t, out, "scheduled_execution_id=sched-42")
	assert.NotContains(t, out, "owner_id")
}

func TestCorrelationHandler_NoIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "hello")

	out := buf.String()
	assert.NotContains(t, out, "request_id")
}
