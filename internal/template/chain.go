package template

import (
	"fmt"
	"strings"
)

// ChainContext is the accumulating key-value store threading step outputs
// between chain steps within a single invocation. It is never persisted.
type ChainContext map[string]any

// SeedContext builds the initial chain context from the scheduled
// execution's input data. The input map is copied so callers cannot
// mutate the context from outside.
func SeedContext(inputData map[string]any) ChainContext {
	cc := make(ChainContext, len(inputData))
	for k, v := range inputData {
		cc[k] = v
	}
	return cc
}

// FoldStepOutput records a completed step's output under both its
// positional key (prompt_<position>_output) and its slugified name
// (<slug>_output), making it addressable from later step templates.
func (cc ChainContext) FoldStepOutput(position int, name string, output any) {
	cc[fmt.Sprintf("prompt_%d_output", position)] = output
	if slug := Slug(name); slug != "" {
		cc[slug+"_output"] = output
	}
}

// Slug normalizes a step name into a template variable prefix: lowercase,
// runs of non-alphanumerics collapsed to single underscores, trimmed.
func Slug(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
