package store

import (
	"context"
	"encoding/json"
)

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Scheduled executions
	GetScheduledExecution(ctx context.Context, id string) (*ScheduledExecution, error)
	GetScheduledExecutionForOwner(ctx context.Context, id, ownerID string) (*ScheduledExecution, error)
	SetScheduledExecutionActive(ctx context.Context, id string, active bool) error
	CountActiveSchedules(ctx context.Context, ownerID string) (int, error)

	// Workflow definitions (steps ordered by position ascending)
	GetWorkflow(ctx context.Context, workflowID string) (*WorkflowDefinition, error)

	// Execution results
	CreateExecutionResult(ctx context.Context, res *ExecutionResult) error
	GetExecutionResult(ctx context.Context, id string) (*ExecutionResult, error)
	CompleteExecutionResult(ctx context.Context, id string, resultData json.RawMessage, durationMs int64) error
	FailExecutionResult(ctx context.Context, id string, errorMessage string, durationMs int64) error

	// Streaming jobs
	CreateStreamingJob(ctx context.Context, job *StreamingJob) error
	GetStreamingJob(ctx context.Context, id string) (*StreamingJob, error)
	MarkStreamingJobFailed(ctx context.Context, id, errorMessage string) error

	// Queue outbox
	AppendOutbox(ctx context.Context, payload json.RawMessage, attrs map[string]string) (int64, error)

	// Dead letters
	AppendDeadLetter(ctx context.Context, entry *DeadLetterEntry) error

	// Secrets
	StoreSecret(ctx context.Context, key string, value []byte) error
	GetSecret(ctx context.Context, key string) ([]byte, error)
	DeleteSecret(ctx context.Context, key string) error
	ListSecrets(ctx context.Context) ([]string, error)

	// Maintenance
	Migrate(ctx context.Context) error

	// Lifecycle
	Close() error
}
