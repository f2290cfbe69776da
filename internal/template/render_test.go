package template

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRenderer() *Renderer {
	return NewRenderer(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
}

func TestRender_DoubleBrace(t *testing.T) {
	r := testRenderer()
	out := r.Render(context.Background(), "Hello {{name}}", map[string]any{"name": "World"})
	assert.Equal(t, "Hello World", out)
}

func TestRender_SingleBrace(t *testing.T) {
	r := testRenderer()
	out := r.Render(context.Background(), "Hello {name}", map[string]any{"name": "World"})
	assert.Equal(t, "Hello World", out)
}

func TestRender_UnresolvedLeftVerbatim(t *testing.T) {
	r := testRenderer()
	out := r.Render(context.Background(), "Hello {name}", map[string]any{})
	assert.Equal(t, "Hello {name}", out)

	out = r.Render(context.Background(), "Hello {{name}}", nil)
	assert.Equal(t, "Hello {{name}}", out)
}

func TestRender_InvalidNameUntouched(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(slog.New(slog.NewTextHandler(&buf, nil)))

	out := r.Render(context.Background(), "keep {{bad name!}} as-is", map[string]any{"bad name!": "x"})
	assert.Equal(t, "keep {{bad name!}} as-is", out)
	assert.Contains(t, buf.String(), "invalid template variable name")
}

func TestRender_UnresolvedDoubleBraceNoWarning(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(slog.New(slog.NewTextHandler(&buf, nil)))

	// The single-brace pass sees {{name}} left verbatim by the first pass;
	// that leftover is not an invalid name and must not be warned about.
	out := r.Render(context.Background(), "Hello {{name}}", nil)
	assert.Equal(t, "Hello {{name}}", out)
	assert.Empty(t, buf.String())
}

func TestRender_NameTooLong(t *testing.T) {
	r := testRenderer()
	long := ""
	for range 101 {
		long += "a"
	}
	tmpl := "{{" + long + "}}"
	out := r.Render(context.Background(), tmpl, map[string]any{long: "x"})
	assert.Equal(t, tmpl, out)
}

func TestRender_Coercion(t *testing.T) {
	r := testRenderer()
	ctx := context.Background()

	tests := []struct {
		name string
		vars map[string]any
		want string
	}{
		{"number", map[string]any{"v": float64(42)}, "42"},
		{"large number plain notation", map[string]any{"v": float64(1000000)}, "1000000"},
		{"large fraction plain notation", map[string]any{"v": float64(12345678.9)}, "12345678.9"},
		{"small fraction plain notation", map[string]any{"v": float64(0.00005)}, "0.00005"},
		{"int", map[string]any{"v": 7}, "7"},
		{"bool", map[string]any{"v": true}, "true"},
		{"nil", map[string]any{"v": nil}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Render(ctx, "{{v}}", tt.vars))
		})
	}
}

func TestRender_ObjectPrettyJSON(t *testing.T) {
	r := testRenderer()
	out := r.Render(context.Background(), "{{v}}", map[string]any{
		"v": map[string]any{"a": 1},
	})
	assert.Contains(t, out, "\"a\": 1")
	assert.Contains(t, out, "\n")
}

func TestRender_DoubleBeforeSingle(t *testing.T) {
	r := testRenderer()
	// The double-brace pass consumes {{v}} before the single-brace pass
	// ever sees its inner braces.
	out := r.Render(context.Background(), "{{v}} and {w}", map[string]any{"v": "A", "w": "B"})
	assert.Equal(t, "A and B", out)
}

func TestRender_UnclosedDelimiterLiteral(t *testing.T) {
	r := testRenderer()
	out := r.Render(context.Background(), "dangling {{name", map[string]any{"name": "x"})
	assert.Equal(t, "dangling {{name", out)
}

func TestRender_Idempotent(t *testing.T) {
	r := testRenderer()
	ctx := context.Background()
	vars := map[string]any{"name": "World"}

	tmpl := "Hello {{name}}, missing {other}, bad {{no good}}"
	once := r.Render(ctx, tmpl, vars)
	twice := r.Render(ctx, once, vars)
	require.Equal(t, once, twice)
}

func TestRender_NoPlaceholders(t *testing.T) {
	r := testRenderer()
	out := r.Render(context.Background(), "plain text", map[string]any{"name": "x"})
	assert.Equal(t, "plain text", out)
}
