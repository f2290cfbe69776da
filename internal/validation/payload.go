package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/candelahq/cadence/pkg/schema"
)

// chainPayloadSchemaJSON is the published JSON Schema for version 1 of the
// chain request payload. The downstream consumer evolves against this
// contract; the submitter validates every payload before persistence.
// Embedded as a constant to avoid filesystem dependencies.
const chainPayloadSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://cadence.dev/schemas/chain-request-v1.json",
  "type": "object",
  "required": ["version", "kind", "instructions", "steps"],
  "properties": {
    "version": {
      "type": "string",
      "const": "1"
    },
    "kind": {
      "type": "string",
      "enum": ["prompt_chain"]
    },
    "instructions": {
      "type": "string",
      "minLength": 1
    },
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/step" }
    },
    "tools": {
      "type": "object"
    },
    "context_seed": {
      "type": "object"
    }
  },
  "additionalProperties": false,
  "$defs": {
    "step": {
      "type": "object",
      "required": ["id", "name", "content", "model_ref", "position"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "name": { "type": "string", "minLength": 1 },
        "content": { "type": "string" },
        "system_context": { "type": "string" },
        "model_ref": { "type": "string", "minLength": 1 },
        "provider": { "type": "string" },
        "position": { "type": "integer", "minimum": 1 },
        "input_mapping": {
          "type": "object",
          "additionalProperties": { "type": "string" }
        },
        "enabled_tools": {
          "type": "array",
          "items": { "type": "string" }
        },
        "repository_refs": {
          "type": "array",
          "items": { "type": "string" }
        }
      },
      "additionalProperties": false
    }
  }
}`

// PayloadValidator validates chain request payloads against the published
// schema. It is safe for concurrent use.
type PayloadValidator struct {
	compiled *jsonschema.Schema
}

// NewPayloadValidator compiles the chain request payload schema.
func NewPayloadValidator() (*PayloadValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(chainPayloadSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal chain payload schema: %w", err)
	}
	if err := c.AddResource("https://cadence.dev/schemas/chain-request-v1.json", doc); err != nil {
		return nil, fmt.Errorf("add chain payload schema resource: %w", err)
	}

	compiled, err := c.Compile("https://cadence.dev/schemas/chain-request-v1.json")
	if err != nil {
		return nil, fmt.Errorf("compile chain payload schema: %w", err)
	}

	return &PayloadValidator{compiled: compiled}, nil
}

// ValidatePayload checks a payload against the version 1 schema, plus
// structural invariants JSON Schema cannot express: unique, strictly
// ascending step positions.
func (v *PayloadValidator) ValidatePayload(payload *schema.ChainRequestPayload) error {
	if payload == nil {
		return schema.NewError(schema.ErrCodeConfiguration, "chain request payload is nil")
	}

	doc, err := toJSONValue(payload)
	if err != nil {
		return schema.NewError(schema.ErrCodeConfiguration, "failed to serialize chain request payload").WithCause(err)
	}

	if err := v.compiled.Validate(doc); err != nil {
		return toCadenceError(err)
	}

	lastPos := 0
	for _, step := range payload.Steps {
		if step.Position <= lastPos {
			return schema.NewErrorf(schema.ErrCodeConfiguration,
				"step positions must be strictly ascending: %d follows %d", step.Position, lastPos)
		}
		lastPos = step.Position
	}

	return nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toCadenceError converts a jsonschema.ValidationError into a CadenceError
// with clear, actionable messages.
func toCadenceError(err error) *schema.CadenceError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeConfiguration, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeConfiguration, verr.Error())
	}

	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeConfiguration, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("payload validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeConfiguration, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
