// Package websearch provides clients for external web search APIs. The router
// falls back to these clients when local retrieval does not produce
// sufficiently relevant chunks.
package websearch

import "context"

// Result is a single web search hit.
type Result struct {
	// URL is the address of the page.
	URL string `json:"url"`

	// Title is the page title as reported by the search provider.
	Title string `json:"title"`

	// Snippet is the provider-supplied excerpt relevant to the query.
	Snippet string `json:"snippet"`

	// Rank is the 1-based position in the provider's result list.
	Rank int `json:"rank"`
}

// Client performs a web search and returns ranked results. Implementations
// must be safe for concurrent use and must respect ctx cancellation.
type Client interface {
	// Search returns up to maxResults hits for the query, best first.
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)

	// Name identifies the provider ("serper", "firecrawl") for logs and metrics.
	Name() string
}
