package tools

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/candelahq/cadence/internal/secrets"
	"github.com/candelahq/cadence/internal/store"
)

// Resolver turns a step's enabled capabilities into provider-native tool
// definitions. Tools are shared across the whole chain and resolved once
// per invocation using the first step's model and provider.
type Resolver struct {
	vault     secrets.Vault
	logger    *slog.Logger
	providers map[string]ToolProvider
}

// NewResolver creates a Resolver with the closed set of provider adapters.
func NewResolver(vault secrets.Vault, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		vault:     vault,
		logger:    logger,
		providers: make(map[string]ToolProvider),
	}
	for _, p := range []ToolProvider{openaiProvider{}, anthropicProvider{}, googleProvider{}} {
		r.providers[p.Name()] = p
	}
	return r
}

// ResolveTools builds the native tool map for a provider. Missing provider,
// empty capability set, unknown provider and missing credentials all degrade
// to an empty map: the invocation proceeds without native tools rather than
// failing. A failure building one tool never aborts the others.
func (r *Resolver) ResolveTools(ctx context.Context, enabled []string, modelRef, provider string) map[string]mcp.Tool {
	resolved := make(map[string]mcp.Tool)
	if provider == "" || len(enabled) == 0 {
		return resolved
	}

	adapter, ok := r.providers[strings.ToLower(provider)]
	if !ok {
		r.logger.WarnContext(ctx, "unknown tool provider, proceeding without native tools",
			slog.String("provider", provider))
		return resolved
	}

	if _, err := r.vault.Resolve(ctx, adapter.CredentialKey()); err != nil {
		if secrets.IsNotFound(err) {
			r.logger.WarnContext(ctx, "provider credential not configured, proceeding without native tools",
				slog.String("provider", adapter.Name()))
		} else {
			r.logger.ErrorContext(ctx, "credential lookup failed, proceeding without native tools",
				slog.String("provider", adapter.Name()),
				slog.String("error", err.Error()))
		}
		return resolved
	}

	for _, capability := range enabled {
		tool, supported, err := adapter.BuildTool(capability, modelRef)
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to build native tool",
				slog.String("provider", adapter.Name()),
				slog.String("capability", capability),
				slog.String("error", err.Error()))
			continue
		}
		if !supported {
			r.logger.InfoContext(ctx, "capability not supported by provider, skipping",
				slog.String("provider", adapter.Name()),
				slog.String("capability", capability))
			continue
		}
		resolved[capability] = tool
	}
	return resolved
}

// CollectEnabledTools returns the de-duplicated union of every step's
// enabled tool list, sorted for determinism.
func CollectEnabledTools(steps []store.ChainStep) []string {
	seen := make(map[string]struct{})
	for _, step := range steps {
		for _, tool := range step.EnabledTools {
			seen[tool] = struct{}{}
		}
	}
	union := make([]string, 0, len(seen))
	for tool := range seen {
		union = append(union, tool)
	}
	sort.Strings(union)
	return union
}
