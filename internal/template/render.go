package template

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// maxVarNameLen bounds variable names; anything longer is not a placeholder.
const maxVarNameLen = 100

// Renderer substitutes {{name}} and {name} placeholders from a context map.
// It is deterministic and side-effect-free apart from warning logs.
type Renderer struct {
	logger *slog.Logger
}

// NewRenderer creates a Renderer. A nil logger falls back to slog.Default().
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{logger: logger}
}

// Render resolves placeholders in two passes: double-brace {{name}} over the
// whole template first, then single-brace {name} over the result. A
// well-formed placeholder with no matching context entry is left verbatim so
// callers can detect unresolved references. Invalid variable names are left
// untouched with a warning. Output feeds a downstream prompt, so values are
// never HTML-escaped or truncated.
func (r *Renderer) Render(ctx context.Context, template string, vars map[string]any) string {
	out := r.renderPass(ctx, template, "{{", "}}", vars)
	return r.renderPass(ctx, out, "{", "}", vars)
}

// renderPass performs one linear scan, substituting open<name>close tokens.
func (r *Renderer) renderPass(ctx context.Context, input, openDelim, closeDelim string, vars map[string]any) string {
	var result strings.Builder
	result.Grow(len(input))

	i := 0
	for i < len(input) {
		idx := strings.Index(input[i:], openDelim)
		if idx == -1 {
			result.WriteString(input[i:])
			break
		}

		result.WriteString(input[i : i+idx])
		start := i + idx + len(openDelim)

		end := strings.Index(input[start:], closeDelim)
		if end == -1 {
			// No closing delimiter: the rest is literal text.
			result.WriteString(input[i+idx:])
			break
		}
		end += start

		name := input[start:end]
		if !validVarName(name) {
			// A token starting with another open delimiter is a leftover
			// from the double-brace pass, not an invalid name.
			if !strings.HasPrefix(name, openDelim) {
				r.logger.WarnContext(ctx, "skipping invalid template variable name",
					slog.String("name", name))
			}
			// Emit the opening delimiter only and rescan the remainder, so
			// braces nested inside an invalid token still get a chance.
			result.WriteString(openDelim)
			i += idx + len(openDelim)
			continue
		}

		val, ok := vars[name]
		if !ok {
			// Unresolved references stay verbatim.
			result.WriteString(input[i+idx : end+len(closeDelim)])
			i = end + len(closeDelim)
			continue
		}

		result.WriteString(coerce(val))
		i = end + len(closeDelim)
	}

	return result.String()
}

// validVarName reports whether name matches [A-Za-z0-9_-]{1,100}.
func validVarName(name string) bool {
	if len(name) == 0 || len(name) > maxVarNameLen {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

// coerce converts a context value into its prompt-safe string form.
// Strings pass through, scalars are stringified, nil becomes empty, and
// composite values become pretty-printed JSON.
func coerce(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case nil:
		return ""
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		// Plain notation: JSON-decoded numbers arrive as float64, and a
		// context value like 1000000 must not render as 1e+06.
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case json.RawMessage:
		return string(v)
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
