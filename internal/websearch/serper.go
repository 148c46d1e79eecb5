package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// serperEndpoint is the Serper.dev Google search API endpoint.
const serperEndpoint = "https://google.serper.dev/search"

// SerperConfig holds the settings for constructing a SerperClient.
type SerperConfig struct {
	// APIKey is the Serper.dev API key (required).
	APIKey string

	// Endpoint overrides the default API endpoint. Used in tests.
	Endpoint string

	// RequestsPerMinute caps outbound calls to the API. 0 disables the limiter.
	RequestsPerMinute int
}

// SerperClient implements Client using the Serper.dev Google search API.
// It is safe for concurrent use.
type SerperClient struct {
	apiKey   string
	endpoint string
	limiter  *rate.Limiter
	client   *http.Client
}

// NewSerperClient constructs a SerperClient from the given config.
func NewSerperClient(cfg *SerperConfig) (*SerperClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("serper: APIKey must not be empty")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = serperEndpoint
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}

	return &SerperClient{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		limiter:  limiter,
		client:   &http.Client{Timeout: 20 * time.Second},
	}, nil
}

// Name identifies this provider in logs and metrics.
func (c *SerperClient) Name() string { return "serper" }

// serperRequest is the JSON body sent to the Serper search endpoint.
type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num,omitempty"`
}

// serperResponse is the subset of the Serper response we consume.
type serperResponse struct {
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Position int    `json:"position"`
	} `json:"organic"`
	Message string `json:"message,omitempty"`
}

// Search returns up to maxResults organic hits for the query.
func (c *SerperClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("serper: rate limit wait: %w", err)
		}
	}

	payload, err := json.Marshal(serperRequest{Q: query, Num: maxResults})
	if err != nil {
		return nil, fmt.Errorf("serper: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("serper: create request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("serper: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Message != "" {
			msg = result.Message
		}
		return nil, fmt.Errorf("serper: %s", msg)
	}

	results := make([]Result, 0, len(result.Organic))
	for i, o := range result.Organic {
		if maxResults > 0 && len(results) >= maxResults {
			break
		}
		rank := o.Position
		if rank == 0 {
			rank = i + 1
		}
		results = append(results, Result{
			URL:     o.Link,
			Title:   o.Title,
			Snippet: o.Snippet,
			Rank:    rank,
		})
	}

	return results, nil
}
