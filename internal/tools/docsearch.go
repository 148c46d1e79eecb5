package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/raqdev/docq-go/internal/rag"
)

// DocSearchTool is an Eino tool that searches the local document index.
// The agent calls it when it needs evidence beyond what the router already
// injected into the conversation context.
type DocSearchTool struct {
	retriever rag.Retriever
	topK      int
}

// docSearchInput is the JSON-serialisable input schema for DocSearchTool.
type docSearchInput struct {
	// Query is the natural-language search query.
	Query string `json:"query"`
}

// NewDocSearchTool constructs a DocSearchTool over the given retriever.
// topK bounds the number of chunks returned per call (default 5).
func NewDocSearchTool(retriever rag.Retriever, topK int) *DocSearchTool {
	if topK <= 0 {
		topK = 5
	}
	return &DocSearchTool{retriever: retriever, topK: topK}
}

// Name returns the tool name registered with the agent.
func (t *DocSearchTool) Name() string { return "document_search" }

// Description returns the LLM-facing description of this tool.
func (t *DocSearchTool) Description() string {
	return "Searches the ingested document corpus for passages relevant to a query. " +
		"Use this FIRST, before any web search — the corpus is the authoritative source. " +
		"Returns passages with their source file and relevance score."
}

// Info returns the Eino tool metadata including the JSON input schema.
func (t *DocSearchTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "Natural-language query to search the document corpus with.",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun executes the search and returns a formatted passage list.
func (t *DocSearchTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var input docSearchInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("document_search: invalid input: %w", err)
	}
	if strings.TrimSpace(input.Query) == "" {
		return "", fmt.Errorf("document_search: query is required")
	}

	docs, err := t.retriever.Retrieve(ctx, input.Query, t.topK)
	if err != nil {
		return "", fmt.Errorf("document_search: retrieval failed: %w", err)
	}
	if len(docs) == 0 {
		return "No matching passages found in the document corpus.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d passage(s):\n", len(docs))
	for i, doc := range docs {
		fmt.Fprintf(&b, "\n[%d] source=%s score=%.3f\n%s\n", i+1, doc.Source, doc.Score, doc.Content)
	}
	return b.String(), nil
}
