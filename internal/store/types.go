package store

import (
	"encoding/json"
	"time"
)

// Execution result statuses. A result is created running and transitions
// exactly once to completed or failed.
const (
	ResultStatusRunning   = "running"
	ResultStatusCompleted = "completed"
	ResultStatusFailed    = "failed"
)

// Streaming job statuses.
const (
	JobStatusPending = "pending"
	JobStatusFailed  = "failed"
)

// ScheduledExecution is the persisted binding of an owner, a workflow and a
// recurring trigger.
type ScheduledExecution struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	WorkflowID     string          `json:"workflow_id"`
	Name           string          `json:"name"`
	ScheduleConfig ScheduleConfig  `json:"schedule_config"`
	InputData      map[string]any  `json:"input_data,omitempty"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ScheduleConfig holds the recurrence settings registered with the external
// scheduler.
type ScheduleConfig struct {
	CronExpression string `json:"cron_expression"`
	Timezone       string `json:"timezone,omitempty"`
	WindowMinutes  int    `json:"window_minutes,omitempty"`
}

// WorkflowDefinition is an ordered prompt chain.
type WorkflowDefinition struct {
	ID    string      `json:"id"`
	Name  string      `json:"name,omitempty"`
	Steps []ChainStep `json:"steps"`
}

// ChainStep is one prompt step. Positions strictly order execution and are
// never reordered at runtime.
type ChainStep struct {
	ID             string            `json:"id"`
	WorkflowID     string            `json:"workflow_id"`
	Name           string            `json:"name"`
	Content        string            `json:"content"`
	SystemContext  string            `json:"system_context,omitempty"`
	ModelRef       string            `json:"model_ref"`
	Provider       string            `json:"provider,omitempty"`
	Position       int               `json:"position"`
	InputMapping   map[string]string `json:"input_mapping,omitempty"`
	EnabledTools   []string          `json:"enabled_tools,omitempty"`
	RepositoryRefs []string          `json:"repository_refs,omitempty"`
}

// ExecutionResult is the ledger row for one triggered run attempt.
type ExecutionResult struct {
	ID                   string          `json:"id"`
	ScheduledExecutionID string          `json:"scheduled_execution_id"`
	Status               string          `json:"status"`
	ResultData           json.RawMessage `json:"result_data,omitempty"`
	DurationMs           *int64          `json:"duration_ms,omitempty"`
	ErrorMessage         string          `json:"error_message,omitempty"`
	ExecutedAt           time.Time       `json:"executed_at"`
}

// StreamingJob is the persisted unit of work for one workflow invocation.
// Ownership passes to the queue consumer once a reference is enqueued.
type StreamingJob struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	OwnerID        string          `json:"owner_id"`
	ModelID        string          `json:"model_id"`
	Status         string          `json:"status"`
	RequestPayload json.RawMessage `json:"request_payload"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// DeadLetterEntry captures a failed invocation for offline inspection.
type DeadLetterEntry struct {
	ID        int64           `json:"id"`
	Event     json.RawMessage `json:"event"`
	Error     string          `json:"error"`
	RequestID string          `json:"request_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
