package submit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/candelahq/cadence/internal/queue"
	"github.com/candelahq/cadence/internal/store"
	"github.com/candelahq/cadence/internal/tools"
	"github.com/candelahq/cadence/internal/validation"
	"github.com/candelahq/cadence/pkg/schema"
)

// ToolResolver resolves native tools for a provider. Satisfied by
// tools.Resolver.
type ToolResolver interface {
	ResolveTools(ctx context.Context, enabled []string, modelRef, provider string) map[string]mcp.Tool
}

// JobStore is the persistence slice of store.Store the submitter needs.
type JobStore interface {
	CreateStreamingJob(ctx context.Context, job *store.StreamingJob) error
	MarkStreamingJobFailed(ctx context.Context, id, errorMessage string) error
}

// Submitter builds and persists one streaming job per triggered run and
// enqueues a reference to it. The per-step render/execute loop belongs to
// the downstream consumer; the submitter's obligation ends at a validated,
// persisted, enqueued payload.
type Submitter struct {
	jobs      JobStore
	resolver  ToolResolver
	queue     queue.Queue
	validator *validation.PayloadValidator
	logger    *slog.Logger
}

// NewSubmitter creates a job submitter.
func NewSubmitter(jobs JobStore, resolver ToolResolver, q queue.Queue, validator *validation.PayloadValidator, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		jobs:      jobs,
		resolver:  resolver,
		queue:     q,
		validator: validator,
		logger:    logger,
	}
}

// Submit builds the chain request payload for one invocation, persists a
// pending streaming job and enqueues a reference tagged with routing
// metadata. Returns the job ID.
//
// Tools are resolved once with the first step's model and provider and
// shared across the whole chain. A job that persists but fails to enqueue
// is marked failed before the error propagates.
func (s *Submitter) Submit(ctx context.Context, sched *store.ScheduledExecution, workflow *store.WorkflowDefinition, executionResultID string) (string, error) {
	if workflow == nil || len(workflow.Steps) == 0 {
		return "", schema.NewErrorf(schema.ErrCodeConfiguration,
			"workflow for scheduled execution %s has no steps", sched.ID)
	}

	first := workflow.Steps[0]
	enabled := tools.CollectEnabledTools(workflow.Steps)
	resolved := s.resolver.ResolveTools(ctx, enabled, first.ModelRef, first.Provider)

	payload := s.buildPayload(sched, workflow, resolved)
	if err := s.validator.ValidatePayload(payload); err != nil {
		return "", err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", schema.NewError(schema.ErrCodeConfiguration, "failed to serialize chain request payload").WithCause(err)
	}

	job := &store.StreamingJob{
		ID:             uuid.NewString(),
		ConversationID: uuid.NewString(),
		OwnerID:        sched.OwnerID,
		ModelID:        first.ModelRef,
		Status:         store.JobStatusPending,
		RequestPayload: raw,
	}
	if err := s.jobs.CreateStreamingJob(ctx, job); err != nil {
		return "", schema.NewError(schema.ErrCodeStore, "failed to persist streaming job").WithCause(err)
	}

	ref, err := json.Marshal(map[string]string{"job_id": job.ID})
	if err != nil {
		return "", schema.NewError(schema.ErrCodeConfiguration, "failed to serialize job reference").WithCause(err)
	}

	attrs := map[string]string{
		queue.AttrProvider:          first.Provider,
		queue.AttrOwnerID:           sched.OwnerID,
		queue.AttrExecutionResultID: executionResultID,
		queue.AttrJobID:             job.ID,
	}
	if err := s.queue.Enqueue(ctx, ref, attrs); err != nil {
		// Never leave the job silently pending.
		if markErr := s.jobs.MarkStreamingJobFailed(ctx, job.ID, err.Error()); markErr != nil {
			s.logger.ErrorContext(ctx, "failed to mark unenqueued job as failed",
				slog.String("job_id", job.ID),
				slog.String("error", markErr.Error()))
		}
		return "", err
	}

	s.logger.InfoContext(ctx, "job submitted",
		slog.String("job_id", job.ID),
		slog.Int("steps", len(workflow.Steps)),
		slog.Int("tools", len(resolved)))
	return job.ID, nil
}

func (s *Submitter) buildPayload(sched *store.ScheduledExecution, workflow *store.WorkflowDefinition, resolved map[string]mcp.Tool) *schema.ChainRequestPayload {
	steps := make([]schema.ChainStepSpec, 0, len(workflow.Steps))
	for _, step := range workflow.Steps {
		steps = append(steps, schema.ChainStepSpec{
			ID:             step.ID,
			Name:           step.Name,
			Content:        step.Content,
			SystemContext:  step.SystemContext,
			ModelRef:       step.ModelRef,
			Provider:       step.Provider,
			Position:       step.Position,
			InputMapping:   step.InputMapping,
			EnabledTools:   step.EnabledTools,
			RepositoryRefs: step.RepositoryRefs,
		})
	}

	return &schema.ChainRequestPayload{
		Version:      schema.PayloadVersion,
		Kind:         schema.PayloadKindPromptChain,
		Instructions: workflow.Steps[0].Content,
		Steps:        steps,
		Tools:        resolved,
		ContextSeed:  sched.InputData,
	}
}
