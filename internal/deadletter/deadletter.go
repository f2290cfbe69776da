package deadletter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/candelahq/cadence/internal/store"
)

// Channel captures failed invocations for offline inspection. Sending is
// best-effort: implementations log their own failures and never re-raise.
type Channel interface {
	Send(ctx context.Context, originalEvent json.RawMessage, cause error, requestID string)
}

// StoreAppender is the persistence slice of store.Store the channel needs.
type StoreAppender interface {
	AppendDeadLetter(ctx context.Context, entry *store.DeadLetterEntry) error
}

// StoreChannel persists dead letters to the dead_letters table.
type StoreChannel struct {
	appender StoreAppender
	logger   *slog.Logger
}

// NewStoreChannel creates a store-backed dead-letter channel.
func NewStoreChannel(appender StoreAppender, logger *slog.Logger) *StoreChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreChannel{appender: appender, logger: logger}
}

func (c *StoreChannel) Send(ctx context.Context, originalEvent json.RawMessage, cause error, requestID string) {
	entry := &store.DeadLetterEntry{
		Event:     originalEvent,
		Error:     cause.Error(),
		RequestID: requestID,
	}
	if err := c.appender.AppendDeadLetter(ctx, entry); err != nil {
		c.logger.ErrorContext(ctx, "failed to append dead letter",
			slog.String("error", err.Error()))
	}
}

var _ Channel = (*StoreChannel)(nil)
