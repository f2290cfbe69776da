package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candelahq/cadence/pkg/schema"
)

func validPayload() *schema.ChainRequestPayload {
	return &schema.ChainRequestPayload{
		Version:      schema.PayloadVersion,
		Kind:         schema.PayloadKindPromptChain,
		Instructions: "Research {{topic}}",
		Steps: []schema.ChainStepSpec{
			{ID: "s1", Name: "research", Content: "Research {{topic}}", ModelRef: "gpt-4o", Provider: "openai", Position: 1},
			{ID: "s2", Name: "summarize", Content: "Summarize {research_output}", ModelRef: "gpt-4o", Position: 2},
		},
		ContextSeed: map[string]any{"topic": "go"},
	}
}

func newValidator(t *testing.T) *PayloadValidator {
	t.Helper()
	v, err := NewPayloadValidator()
	require.NoError(t, err)
	return v
}

func TestValidatePayload_Valid(t *testing.T) {
	v := newValidator(t)
	require.NoError(t, v.ValidatePayload(validPayload()))
}

func TestValidatePayload_Nil(t *testing.T) {
	v := newValidator(t)
	err := v.ValidatePayload(nil)
	require.Error(t, err)
}

func TestValidatePayload_WrongVersion(t *testing.T) {
	v := newValidator(t)
	p := validPayload()
	p.Version = "2"
	err := v.ValidatePayload(p)
	require.Error(t, err)
	cerr, ok := err.(*schema.CadenceError)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeConfiguration, cerr.Code)
}

func TestValidatePayload_NoSteps(t *testing.T) {
	v := newValidator(t)
	p := validPayload()
	p.Steps = nil
	require.Error(t, v.ValidatePayload(p))
}

func TestValidatePayload_MissingModelRef(t *testing.T) {
	v := newValidator(t)
	p := validPayload()
	p.Steps[0].ModelRef = ""
	require.Error(t, v.ValidatePayload(p))
}

func TestValidatePayload_NonAscendingPositions(t *testing.T) {
	v := newValidator(t)
	p := validPayload()
	p.Steps[1].Position = 1
	err := v.ValidatePayload(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strictly ascending")
}

func TestValidatePayload_EmptyInstructions(t *testing.T) {
	v := newValidator(t)
	p := validPayload()
	p.Instructions = ""
	require.Error(t, v.ValidatePayload(p))
}
