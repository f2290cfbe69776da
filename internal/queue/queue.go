package queue

import (
	"context"
	"encoding/json"
)

// Queue is the work queue collaborator. Enqueue hands a job reference to
// the downstream chain consumer; ownership of the job passes with it.
type Queue interface {
	Enqueue(ctx context.Context, payload json.RawMessage, attrs map[string]string) error
}

// Standard enqueue attributes.
const (
	AttrProvider          = "provider"
	AttrOwnerID           = "owner_id"
	AttrExecutionResultID = "execution_result_id"
	AttrJobID             = "job_id"
)
