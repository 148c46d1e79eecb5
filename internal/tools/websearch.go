package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/raqdev/docq-go/internal/websearch"
)

// WebSearchTool is an Eino tool that searches the web via the configured
// search provider. The agent should reach for it only when the document
// corpus lacks the answer.
type WebSearchTool struct {
	client     websearch.Client
	maxResults int
}

// webSearchInput is the JSON-serialisable input schema for WebSearchTool.
type webSearchInput struct {
	// Query is the natural-language search query.
	Query string `json:"query"`
}

// NewWebSearchTool constructs a WebSearchTool over the given client.
// maxResults bounds the number of hits returned per call (default 5).
func NewWebSearchTool(client websearch.Client, maxResults int) *WebSearchTool {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &WebSearchTool{client: client, maxResults: maxResults}
}

// Name returns the tool name registered with the agent.
func (t *WebSearchTool) Name() string { return "web_search" }

// Description returns the LLM-facing description of this tool.
func (t *WebSearchTool) Description() string {
	return "Searches the web for information NOT found in the document corpus. " +
		"Only use this after document_search returned nothing relevant. " +
		"Returns result titles, URLs, and snippets."
}

// Info returns the Eino tool metadata including the JSON input schema.
func (t *WebSearchTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "Natural-language query to search the web with.",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun executes the web search and returns a formatted result list.
func (t *WebSearchTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var input webSearchInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("web_search: invalid input: %w", err)
	}
	if strings.TrimSpace(input.Query) == "" {
		return "", fmt.Errorf("web_search: query is required")
	}

	results, err := t.client.Search(ctx, input.Query, t.maxResults)
	if err != nil {
		return "", fmt.Errorf("web_search: search failed: %w", err)
	}
	if len(results) == 0 {
		return "No web results found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d result(s) via %s:\n", len(results), t.client.Name())
	for _, res := range results {
		fmt.Fprintf(&b, "\n[%d] %s\n%s\n%s\n", res.Rank, res.Title, res.URL, res.Snippet)
	}
	return b.String(), nil
}
