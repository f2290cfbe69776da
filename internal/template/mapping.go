package template

import (
	"context"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/candelahq/cadence/pkg/schema"
)

// Mapper evaluates per-step input mappings. Mapping values are jq
// expressions evaluated against the chain context, so a step can reshape
// earlier outputs before they reach its template variables.
// Thread-safe: compiled *Code objects are cached and reused.
type Mapper struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// NewMapper creates a new input mapping evaluator.
func NewMapper() *Mapper {
	return &Mapper{cache: make(map[string]*gojq.Code)}
}

// Apply evaluates every mapping entry against the chain context and returns
// the derived variables. Keys are the target variable names; values are jq
// expressions. jq expressions producing multiple outputs are collected into
// a slice.
func (m *Mapper) Apply(ctx context.Context, mapping map[string]string, cc ChainContext) (map[string]any, error) {
	if len(mapping) == 0 {
		return nil, nil
	}

	out := make(map[string]any, len(mapping))
	for name, expr := range mapping {
		val, err := m.evaluate(ctx, expr, map[string]any(cc))
		if err != nil {
			return nil, err
		}
		out[name] = val
	}
	return out, nil
}

func (m *Mapper) evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "empty input mapping expression")
	}

	code, err := m.getOrCompile(expression)
	if err != nil {
		return nil, err
	}

	iter := code.RunWithContext(ctx, data)

	var results []any
	for {
		val, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := val.(error); isErr {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"input mapping evaluation failed for %q: %s", expression, err.Error()).
				WithCause(err).
				WithDetails(map[string]any{"expression": expression})
		}
		results = append(results, val)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// getOrCompile returns a cached compiled code or compiles and caches a new one.
func (m *Mapper) getOrCompile(expression string) (*gojq.Code, error) {
	m.mu.RLock()
	if code, ok := m.cache[expression]; ok {
		m.mu.RUnlock()
		return code, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock.
	if code, ok := m.cache[expression]; ok {
		return code, nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"input mapping parse error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	code, err := gojq.Compile(query,
		// Sandbox: return empty env to block $ENV and env access.
		gojq.WithEnvironLoader(func() []string { return nil }),
	)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"input mapping compile error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	m.cache[expression] = code
	return code, nil
}
