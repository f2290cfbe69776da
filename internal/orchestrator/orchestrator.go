package orchestrator

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/candelahq/cadence/internal/deadletter"
	"github.com/candelahq/cadence/internal/logging"
	"github.com/candelahq/cadence/internal/store"
	"github.com/candelahq/cadence/internal/trigger"
	"github.com/candelahq/cadence/pkg/schema"
)

// Submitter hands one invocation to the work queue. Satisfied by
// submit.Submitter.
type Submitter interface {
	Submit(ctx context.Context, sched *store.ScheduledExecution, workflow *store.WorkflowDefinition, executionResultID string) (string, error)
}

// TriggerManager manages external recurring triggers. Satisfied by
// trigger.Manager.
type TriggerManager interface {
	Create(ctx context.Context, ev *schema.ManagementEvent) (string, error)
	Update(ctx context.Context, ev *schema.ManagementEvent) (string, error)
	Delete(ctx context.Context, ev *schema.ManagementEvent) (string, error)
}

// Handler is the entry point for every inbound event. It dispatches by
// event shape, composes the collaborators and owns top-level failure
// routing: no inbound event is ever silently dropped.
type Handler struct {
	store      store.Store
	submitter  Submitter
	triggers   TriggerManager
	deadLetter deadletter.Channel
	logger     *slog.Logger
}

// NewHandler creates the orchestrator. deadLetter may be nil.
func NewHandler(s store.Store, submitter Submitter, triggers TriggerManager, deadLetter deadletter.Channel, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:      s,
		submitter:  submitter,
		triggers:   triggers,
		deadLetter: deadLetter,
		logger:     logger,
	}
}

// Handle processes one raw inbound event and always returns a response.
// Errors are caught exactly once at this level: logged with context, any
// in-flight execution result is failed best-effort, the event is forwarded
// to the dead-letter channel and a generic failure body is returned.
func (h *Handler) Handle(ctx context.Context, raw json.RawMessage) *schema.Response {
	requestID := uuid.NewString()
	ctx = logging.WithRequestID(ctx, requestID)

	resp, inflightResultID, err := h.dispatch(ctx, raw)
	if err == nil {
		return resp
	}

	status := schema.StatusFor(err)
	if status != 500 {
		// Expected business outcomes: validation, not-found, quota.
		h.logger.WarnContext(ctx, "event rejected",
			slog.Int("status", status),
			slog.String("error", err.Error()))
		return schema.ErrorResponse(err)
	}

	h.logger.ErrorContext(ctx, "event handling failed",
		slog.String("error", err.Error()))

	if inflightResultID != "" {
		if failErr := h.store.FailExecutionResult(ctx, inflightResultID, err.Error(), 0); failErr != nil {
			h.logger.ErrorContext(ctx, "failed to mark execution result failed",
				slog.String("execution_result_id", inflightResultID),
				slog.String("error", failErr.Error()))
		}
	}
	if h.deadLetter != nil {
		h.deadLetter.Send(ctx, raw, err, requestID)
	}
	return schema.ErrorResponse(err)
}

// dispatch routes by event shape. The second return value is the ID of an
// execution result created during handling, for best-effort failure marking
// by the catch-all.
func (h *Handler) dispatch(ctx context.Context, raw json.RawMessage) (*schema.Response, string, error) {
	switch schema.ClassifyEvent(raw) {
	case schema.EventSchedulerFire:
		var ev schema.SchedulerEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, "", schema.NewError(schema.ErrCodeValidation, "malformed scheduler event").WithCause(err)
		}
		return h.runScheduled(ctx, &ev)

	case schema.EventManagement:
		var ev schema.ManagementEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, "", schema.NewError(schema.ErrCodeValidation, "malformed management event").WithCause(err)
		}
		resp, err := h.manageTrigger(ctx, &ev)
		return resp, "", err

	default:
		return nil, "", schema.NewError(schema.ErrCodeValidation, "unrecognized event shape")
	}
}

// runScheduled handles one trigger fire: load the schedule, create the
// running execution result, delegate to the submitter and settle the
// result. An inactive schedule is skipped without creating a result.
func (h *Handler) runScheduled(ctx context.Context, ev *schema.SchedulerEvent) (*schema.Response, string, error) {
	ctx = logging.WithExecutionID(ctx, ev.ScheduledExecutionID)

	sched, err := h.store.GetScheduledExecution(ctx, ev.ScheduledExecutionID)
	if err != nil {
		return nil, "", err
	}
	ctx = logging.WithOwnerID(ctx, sched.OwnerID)

	if !sched.Active {
		h.logger.InfoContext(ctx, "scheduled execution inactive, skipping")
		return schema.NewResponse(200, map[string]string{
			"status":                 "skipped",
			"scheduled_execution_id": sched.ID,
		}), "", nil
	}

	workflow, err := h.store.GetWorkflow(ctx, sched.WorkflowID)
	if err != nil {
		return nil, "", err
	}

	result := &store.ExecutionResult{
		ID:                   uuid.NewString(),
		ScheduledExecutionID: sched.ID,
		Status:               store.ResultStatusRunning,
		ExecutedAt:           time.Now().UTC(),
	}
	if err := h.store.CreateExecutionResult(ctx, result); err != nil {
		return nil, "", schema.NewError(schema.ErrCodeStore, "failed to create execution result").WithCause(err)
	}

	start := time.Now()
	jobID, err := h.submitter.Submit(ctx, sched, workflow, result.ID)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		if failErr := h.store.FailExecutionResult(ctx, result.ID, err.Error(), elapsed); failErr != nil {
			h.logger.ErrorContext(ctx, "failed to mark execution result failed",
				slog.String("execution_result_id", result.ID),
				slog.String("error", failErr.Error()))
		}
		return nil, result.ID, err
	}

	resultData, _ := json.Marshal(map[string]string{"job_id": jobID})
	if err := h.store.CompleteExecutionResult(ctx, result.ID, resultData, elapsed); err != nil {
		return nil, result.ID, schema.NewError(schema.ErrCodeStore, "failed to complete execution result").WithCause(err)
	}

	h.logger.InfoContext(ctx, "scheduled execution submitted",
		slog.String("job_id", jobID),
		slog.String("execution_result_id", result.ID))
	return schema.NewResponse(200, map[string]string{
		"status":              "submitted",
		"job_id":              jobID,
		"execution_result_id": result.ID,
	}), "", nil
}

func (h *Handler) manageTrigger(ctx context.Context, ev *schema.ManagementEvent) (*schema.Response, error) {
	ctx = logging.WithExecutionID(ctx, ev.ScheduledExecutionID)
	if ev.OwnerID != "" {
		ctx = logging.WithOwnerID(ctx, ev.OwnerID)
	}

	var (
		name string
		err  error
	)
	switch ev.Action {
	case schema.ActionCreate:
		name, err = h.triggers.Create(ctx, ev)
	case schema.ActionUpdate:
		name, err = h.triggers.Update(ctx, ev)
	case schema.ActionDelete:
		name, err = h.triggers.Delete(ctx, ev)
	default:
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown action %q", ev.Action)
	}
	if err != nil {
		return nil, err
	}

	return schema.NewResponse(200, map[string]string{
		"status":       ev.Action + "d",
		"trigger_name": name,
	}), nil
}

var _ TriggerManager = (*trigger.Manager)(nil)
