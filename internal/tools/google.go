package tools

import "github.com/mark3labs/mcp-go/mcp"

// googleProvider maps capabilities onto Gemini built-in tools.
type googleProvider struct{}

func (googleProvider) Name() string          { return "google" }
func (googleProvider) CredentialKey() string { return "google_api_key" }

func (googleProvider) BuildTool(capability, modelRef string) (mcp.Tool, bool, error) {
	switch capability {
	case CapWebSearch:
		return mcp.NewTool("google_search",
			mcp.WithDescription("Gemini grounding with Google Search"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		), true, nil
	case CapCodeInterpreter:
		return mcp.NewTool("code_execution",
			mcp.WithDescription("Gemini code execution"),
			mcp.WithString("code", mcp.Required(), mcp.Description("Python source to execute")),
		), true, nil
	default:
		return mcp.Tool{}, false, nil
	}
}
