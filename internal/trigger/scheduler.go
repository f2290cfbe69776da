package trigger

import (
	"context"
	"encoding/json"
)

// ExternalScheduler is the recurring-trigger collaborator. Implementations
// register named triggers that later invoke the orchestrator with the given
// target payload. Cloud deployments back this with a managed scheduler;
// single-binary deployments use LocalScheduler.
type ExternalScheduler interface {
	CreateTrigger(ctx context.Context, name, cronExpr, timezone string, windowMinutes int, targetPayload json.RawMessage) error
	UpdateTrigger(ctx context.Context, name, cronExpr, timezone string, windowMinutes int, targetPayload json.RawMessage) error

	// DeleteTrigger removes a named trigger. Deleting a trigger that does
	// not exist is success.
	DeleteTrigger(ctx context.Context, name string) error
}
