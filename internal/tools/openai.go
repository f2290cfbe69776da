package tools

import "github.com/mark3labs/mcp-go/mcp"

// openaiProvider maps capabilities onto OpenAI Responses API built-in tools.
type openaiProvider struct{}

func (openaiProvider) Name() string          { return "openai" }
func (openaiProvider) CredentialKey() string { return "openai_api_key" }

func (openaiProvider) BuildTool(capability, modelRef string) (mcp.Tool, bool, error) {
	switch capability {
	case CapWebSearch:
		return mcp.NewTool("web_search_preview",
			mcp.WithDescription("OpenAI hosted web search"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		), true, nil
	case CapCodeInterpreter:
		return mcp.NewTool("code_interpreter",
			mcp.WithDescription("OpenAI hosted Python sandbox"),
			mcp.WithString("code", mcp.Required(), mcp.Description("Python source to execute")),
		), true, nil
	case CapFileSearch:
		return mcp.NewTool("file_search",
			mcp.WithDescription("OpenAI hosted vector store search"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		), true, nil
	default:
		return mcp.Tool{}, false, nil
	}
}
