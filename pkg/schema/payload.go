package schema

import "github.com/mark3labs/mcp-go/mcp"

// PayloadVersion is the published version of the chain request payload.
// The downstream consumer evolves against this tag.
const PayloadVersion = "1"

// PayloadKindPromptChain tags a payload as a multi-step prompt chain.
const PayloadKindPromptChain = "prompt_chain"

// ChainRequestPayload is the versioned unit of work handed to the queue
// consumer. It is self-contained: ordered steps, resolved native tools and
// the initial chain context seed.
type ChainRequestPayload struct {
	Version      string              `json:"version"`
	Kind         string              `json:"kind"`
	Instructions string              `json:"instructions"`
	Steps        []ChainStepSpec     `json:"steps"`
	Tools        map[string]mcp.Tool `json:"tools,omitempty"`
	ContextSeed  map[string]any      `json:"context_seed,omitempty"`
}

// ChainStepSpec describes one prompt step of the chain. Positions form a
// strict total order; the consumer executes ascending and never reorders.
type ChainStepSpec struct {
	ID             string            `json:"id"`
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
