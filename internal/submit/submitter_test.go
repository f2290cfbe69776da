package submit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candelahq/cadence/internal/queue"
	"github.com/candelahq/cadence/internal/store"
	"github.com/candelahq/cadence/internal/validation"
	"github.com/candelahq/cadence/pkg/schema"
)

type fakeJobStore struct {
	created    []*store.StreamingJob
	failed     map[string]string
	createErr  error
	markFailed error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{failed: make(map[string]string)}
}

func (f *fakeJobStore) CreateStreamingJob(_ context.Context, job *store.StreamingJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, job)
	return nil
}

func (f *fakeJobStore) MarkStreamingJobFailed(_ context.Context, id, msg string) error {
	if f.markFailed != nil {
		return f.markFailed
	}
	f.failed[id] = msg
	return nil
}

type fakeResolver struct {
	lastEnabled  []string
	lastModelRef string
	lastProvider string
	tools        map[string]mcp.Tool
}

func (f *fakeResolver) ResolveTools(_ context.Context, enabled []string, modelRef, provider string) map[string]mcp.Tool {
	f.lastEnabled = enabled
	f.lastModelRef = modelRef
	f.lastProvider = provider
	return f.tools
}

type fakeQueue struct {
	payloads []json.RawMessage
	attrs    []map[string]string
	err      error
}

func (f *fakeQueue) Enqueue(_ context.Context, payload json.RawMessage, attrs map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	f.attrs = append(f.attrs, attrs)
	return nil
}

func testWorkflow() *store.WorkflowDefinition {
	return &store.WorkflowDefinition{
		ID: "wf-1",
		Steps: []store.ChainStep{
			{ID: "s1", Name: "research", Content: "Research {{topic}}", ModelRef: "gpt-4o", Provider: "openai", Position: 1, EnabledTools: []string{"webSearch"}},
			{ID: "s2", Name: "draft", Content: "Draft from {research_output}", ModelRef: "gpt-4o", Position: 2, EnabledTools: []string{"codeInterpreter", "webSearch"}},
			{ID: "s3", Name: "polish", Content: "Polish {draft_output}", ModelRef: "gpt-4o", Position: 3},
		},
	}
}

func testSchedule() *store.ScheduledExecution {
	return &store.ScheduledExecution{
		ID:         "sched-1",
		OwnerID:    "owner-1",
		WorkflowID: "wf-1",
		InputData:  map[string]any{"topic": "go"},
		Active:     true,
	}
}

func newSubmitter(t *testing.T, jobs *fakeJobStore, resolver *fakeResolver, q *fakeQueue) *Submitter {
	t.Helper()
	validator, err := validation.NewPayloadValidator()
	require.NoError(t, err)
	return NewSubmitter(jobs, resolver, q, validator, nil)
}

func TestSubmit(t *testing.T) {
	jobs := newFakeJobStore()
	resolver := &fakeResolver{tools: map[string]mcp.Tool{"web_search_preview": {}}}
	q := &fakeQueue{}
	s := newSubmitter(t, jobs, resolver, q)

	jobID, err := s.Submit(context.Background(), testSchedule(), testWorkflow(), "res-1")
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	// Tools resolved once, union of all steps, first step's model/provider.
	assert.ElementsMatch(t, []string{"webSearch", "codeInterpreter"}, resolver.lastEnabled)
	assert.Equal(t, "gpt-4o", resolver.lastModelRef)
	assert.Equal(t, "openai", resolver.lastProvider)

	require.Len(t, jobs.created, 1)
	job := jobs.created[0]
	assert.Equal(t, jobID, job.ID)
	assert.Equal(t, store.JobStatusPending, job.Status)
	assert.Equal(t, "owner-1", job.OwnerID)
	assert.Equal(t, "gpt-4o", job.ModelID)
	assert.NotEmpty(t, job.ConversationID)

	var payload schema.ChainRequestPayload
	require.NoError(t, json.Unmarshal(job.RequestPayload, &payload))
	assert.Equal(t, schema.PayloadVersion, payload.Version)
	assert.Equal(t, schema.PayloadKindPromptChain, payload.Kind)
	assert.Equal(t, "Research {{topic}}", payload.Instructions)
	require.Len(t, payload.Steps, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{payload.Steps[0].Position, payload.Steps[1].Position, payload.Steps[2].Position})
	assert.Equal(t, map[string]any{"topic": "go"}, payload.ContextSeed)

	require.Len(t, q.attrs, 1)
	attrs := q.attrs[0]
	assert.Equal(t, "openai", attrs[queue.AttrProvider])
	assert.Equal(t, "owner-1", attrs[queue.AttrOwnerID])
	assert.Equal(t, "res-1", attrs[queue.AttrExecutionResultID])
	assert.Equal(t, jobID, attrs[queue.AttrJobID])
}

func TestSubmit_EmptyWorkflow(t *testing.T) {
	jobs := newFakeJobStore()
	s := newSubmitter(t, jobs, &fakeResolver{}, &fakeQueue{})

	_, err := s.Submit(context.Background(), testSchedule(), &store.WorkflowDefinition{ID: "wf-1"}, "res-1")
	require.Error(t, err)
	assert.Equal(t, 400, schema.StatusFor(err))
	assert.Empty(t, jobs.created)
}

func TestSubmit_InvalidStepFailsBeforePersistence(t *testing.T) {
	jobs := newFakeJobStore()
	s := newSubmitter(t, jobs, &fakeResolver{}, &fakeQueue{})

	wf := testWorkflow()
	wf.Steps[1].ModelRef = ""
	_, err := s.Submit(context.Background(), testSchedule(), wf, "res-1")
	require.Error(t, err)
	assert.Empty(t, jobs.created)
}

func TestSubmit_EnqueueFailureMarksJobFailed(t *testing.T) {
	jobs := newFakeJobStore()
	q := &fakeQueue{err: errors.New("broker down")}
	s := newSubmitter(t, jobs, &fakeResolver{}, q)

	_, err := s.Submit(context.Background(), testSchedule(), testWorkflow(), "res-1")
	require.Error(t, err)

	require.Len(t, jobs.created, 1)
	msg, ok := jobs.failed[jobs.created[0].ID]
	require.True(t, ok, "job should not be left silently pending")
	assert.Contains(t, msg, "broker down")
}

func TestSubmit_CreateJobFailure(t *testing.T) {
	jobs := newFakeJobStore()
	jobs.createErr = errors.New("disk full")
	q := &fakeQueue{}
	s := newSubmitter(t, jobs, &fakeResolver{}, q)

	_, err := s.Submit(context.Background(), testSchedule(), testWorkflow(), "res-1")
	require.Error(t, err)
	assert.Empty(t, q.payloads)
}
