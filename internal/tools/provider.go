package tools

import "github.com/mark3labs/mcp-go/mcp"

// Tool capabilities a chain step can enable. Capability-to-native-tool
// mapping is explicit per provider; an unsupported capability is a no-op.
const (
	CapWebSearch       = "webSearch"
	CapCodeInterpreter = "codeInterpreter"
	CapFileSearch      = "fileSearch"
)

// ToolProvider builds provider-native tool definitions for one AI vendor.
// The closed set of implementations is registered in NewResolver; providers
// are selected by case-insensitive name lookup, never by dynamic loading.
type ToolProvider interface {
	// Name is the canonical lowercase provider name.
	Name() string

	// CredentialKey is the vault key holding this provider's API key.
	CredentialKey() string

	// BuildTool maps a capability onto a provider-native tool definition in
	// MCP tool format. ok is false when the provider does not support the
	// capability.
	BuildTool(capability, modelRef string) (tool mcp.Tool, ok bool, err error)
}
