package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SourceScheduler is the source marker the external scheduler stamps on
// trigger target payloads.
const SourceScheduler = "cadence.scheduler"

// Management actions accepted by the trigger manager.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// SchedulerEvent is the payload delivered when a recurring trigger fires.
type SchedulerEvent struct {
	Source               string `json:"source"`
	ScheduledExecutionID string `json:"scheduled_execution_id"`
}

// ManagementEvent asks the trigger manager to create, update or delete
// the recurring trigger for a scheduled execution.
type ManagementEvent struct {
	Action               string `json:"action"`
	ScheduledExecutionID string `json:"scheduled_execution_id"`
	OwnerID              string `json:"owner_id"`
	CronExpression       string `json:"cron_expression"`
	Timezone             string `json:"timezone,omitempty"`
}

// EventKind classifies an inbound event by shape.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventSchedulerFire
	EventManagement
)

// envelope is the superset of fields used for shape detection.
type envelope struct {
	Source               string `json:"source"`
	Action               string `json:"action"`
	ScheduledExecutionID string `json:"scheduled_execution_id"`
}

// ClassifyEvent inspects a raw event and reports its kind. A scheduler-origin
// event carries the scheduler source marker and an execution ID; a management
// event carries an action field. Anything else is unrecognized.
func ClassifyEvent(raw json.RawMessage) EventKind {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return EventUnknown
	}
	if env.Source == SourceScheduler && env.ScheduledExecutionID != "" {
		return EventSchedulerFire
	}
	if env.Action != "" {
		return EventManagement
	}
	return EventUnknown
}

// Response is the result envelope returned for every inbound event.
type Response struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
}

// NewResponse builds a response with a JSON-marshalled body. Marshalling the
// body can only fail for non-JSON-encodable values, which would be a
// programming error; in that case a minimal error body is substituted.
func NewResponse(statusCode int, body any) *Response {
	b, err := json.Marshal(body)
	if err != nil {
		b = []byte(fmt.Sprintf(`{"error":"failed to encode response body: %s"}`, err))
	}
	return &Response{StatusCode: statusCode, Body: b}
}

// ErrorResponse builds the response for a typed error, exposing only the
// message and code. Internal errors are replaced with a generic body so
// stack traces and credentials never leak.
func ErrorResponse(err error) *Response {
	status := StatusFor(err)
	if status == 500 {
		return NewResponse(500, map[string]any{"error": "internal error"})
	}
	var cerr *CadenceError
	errors.As(err, &cerr)
	return NewResponse(status, map[string]any{"error": cerr.Message, "code": cerr.Code})
}
