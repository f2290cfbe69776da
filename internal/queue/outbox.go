package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/candelahq/cadence/pkg/schema"
)

// OutboxAppender is the persistence slice of store.Store the outbox needs.
type OutboxAppender interface {
	AppendOutbox(ctx context.Context, payload json.RawMessage, attrs map[string]string) (int64, error)
}

// OutboxQueue is a store-backed queue: entries land in the queue_outbox
// table of the same database and are drained by the downstream consumer.
// Cloud deployments substitute a broker-backed Queue implementation.
type OutboxQueue struct {
	appender OutboxAppender
	logger   *slog.Logger
}

// NewOutboxQueue creates a store-backed queue.
func NewOutboxQueue(appender OutboxAppender, logger *slog.Logger) *OutboxQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxQueue{appender: appender, logger: logger}
}

func (q *OutboxQueue) Enqueue(ctx context.Context, payload json.RawMessage, attrs map[string]string) error {
	id, err := q.appender.AppendOutbox(ctx, payload, attrs)
	if err != nil {
		return schema.NewError(schema.ErrCodeExternal, "enqueue failed").WithCause(err)
	}
	q.logger.DebugContext(ctx, "enqueued job reference", slog.Int64("outbox_id", id))
	return nil
}

var _ Queue = (*OutboxQueue)(nil)
