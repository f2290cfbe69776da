package tools

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candelahq/cadence/internal/store"
	"github.com/candelahq/cadence/pkg/schema"
)

// mockVault is an in-memory credential vault for tests.
type mockVault struct {
	creds map[string][]byte
	err   error
}

func (v *mockVault) Resolve(_ context.Context, key string) ([]byte, error) {
	if v.err != nil {
		return nil, v.err
	}
	val, ok := v.creds[key]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "credential %q not found", key)
	}
	return val, nil
}

func (v *mockVault) Store(_ context.Context, _ string, _ []byte) error { return nil }
func (v *mockVault) Delete(_ context.Context, _ string) error          { return nil }
func (v *mockVault) List(_ context.Context) ([]string, error)          { return nil, nil }

func testResolver(creds map[string][]byte) *Resolver {
	vault := &mockVault{creds: creds}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return NewResolver(vault, logger)
}

func TestResolveTools_AllSupported(t *testing.T) {
	r := testResolver(map[string][]byte{"openai_api_key": []byte("sk-test")})

	tools := r.ResolveTools(context.Background(),
		[]string{"webSearch", "codeInterpreter", "fileSearch"}, "gpt-4o", "openai")

	require.Len(t, tools, 3)
	assert.Equal(t, "web_search_preview", tools["webSearch"].Name)
	assert.Equal(t, "code_interpreter", tools["codeInterpreter"].Name)
	assert.Equal(t, "file_search", tools["fileSearch"].Name)
}

func TestResolveTools_CaseInsensitiveProvider(t *testing.T) {
	r := testResolver(map[string][]byte{"anthropic_api_key": []byte("key")})

	tools := r.ResolveTools(context.Background(), []string{"webSearch"}, "claude-sonnet", "Anthropic")
	require.Len(t, tools, 1)
	assert.Equal(t, "web_search", tools["webSearch"].Name)
}

func TestResolveTools_EmptyProviderOrTools(t *testing.T) {
	r := testResolver(map[string][]byte{"openai_api_key": []byte("k")})
	ctx := context.Background()

	assert.Empty(t, r.ResolveTools(ctx, []string{"webSearch"}, "gpt-4o", ""))
	assert.Empty(t, r.ResolveTools(ctx, nil, "gpt-4o", "openai"))
}

func TestResolveTools_UnknownProvider(t *testing.T) {
	var buf bytes.Buffer
	r := NewResolver(&mockVault{}, slog.New(slog.NewTextHandler(&buf, nil)))

	tools := r.ResolveTools(context.Background(), []string{"webSearch"}, "m", "mistral")
	assert.Empty(t, tools)
	assert.Contains(t, buf.String(), "unknown tool provider")
}

func TestResolveTools_MissingCredentialDegrades(t *testing.T) {
	var buf bytes.Buffer
	r := NewResolver(&mockVault{creds: map[string][]byte{}},
		slog.New(slog.NewTextHandler(&buf, nil)))

	tools := r.ResolveTools(context.Background(), []string{"webSearch"}, "gpt-4o", "openai")
	assert.Empty(t, tools)
	assert.Contains(t, buf.String(), "credential not configured")
}

func TestResolveTools_CredentialLookupError(t *testing.T) {
	var buf bytes.Buffer
	r := NewResolver(&mockVault{err: errors.New("vault unavailable")},
		slog.New(slog.NewTextHandler(&buf, nil)))

	tools := r.ResolveTools(context.Background(), []string{"webSearch"}, "gpt-4o", "openai")
	assert.Empty(t, tools)
	assert.Contains(t, buf.String(), "credential lookup failed")
}

func TestResolveTools_UnsupportedCapabilityNoOp(t *testing.T) {
	r := testResolver(map[string][]byte{"anthropic_api_key": []byte("k")})

	// fileSearch has no Anthropic equivalent: logged no-op, others resolve.
	tools := r.ResolveTools(context.Background(),
		[]string{"fileSearch", "webSearch"}, "claude-sonnet", "anthropic")
	require.Len(t, tools, 1)
	assert.Contains(t, tools, "webSearch")
}

func TestCollectEnabledTools(t *testing.T) {
	steps := []store.ChainStep{
		{EnabledTools: []string{"webSearch"}},
		{EnabledTools: []string{"codeInterpreter", "webSearch"}},
	}
	union := CollectEnabledTools(steps)
	assert.ElementsMatch(t, []string{"webSearch", "codeInterpreter"}, union)
}

func TestCollectEnabledTools_Empty(t *testing.T) {
	assert.Empty(t, CollectEnabledTools(nil))
	assert.Empty(t, CollectEnabledTools([]store.ChainStep{{}, {}}))
}

func TestCollectEnabledTools_OrderIndependent(t *testing.T) {
	a := CollectEnabledTools([]store.ChainStep{
		{EnabledTools: []string{"webSearch", "fileSearch"}},
		{EnabledTools: []string{"codeInterpreter"}},
	})
	b := CollectEnabledTools([]store.ChainStep{
		{EnabledTools: []string{"codeInterpreter"}},
		{EnabledTools: []string{"fileSearch", "webSearch"}},
	})
	assert.Equal(t, a, b)
}
