package tools

import "github.com/mark3labs/mcp-go/mcp"

// anthropicProvider maps capabilities onto Anthropic server-side tools.
type anthropicProvider struct{}

func (anthropicProvider) Name() string          { return "anthropic" }
func (anthropicProvider) CredentialKey() string { return "anthropic_api_key" }

func (anthropicProvider) BuildTool(capability, modelRef string) (mcp.Tool, bool, error) {
	switch capability {
	case CapWebSearch:
		return mcp.NewTool("web_search",
			mcp.WithDescription("Anthropic server-side web search"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		), true, nil
	case CapCodeInterpreter:
		return mcp.NewTool("code_execution",
			mcp.WithDescription("Anthropic server-side code execution"),
			mcp.WithString("code", mcp.Required(), mcp.Description("Python source to execute")),
		), true, nil
	default:
		// fileSearch has no Anthropic-native equivalent.
		return mcp.Tool{}, false, nil
	}
}
