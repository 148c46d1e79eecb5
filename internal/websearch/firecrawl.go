package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// firecrawlEndpoint is the FireCrawl search API endpoint.
const firecrawlEndpoint = "https://api.firecrawl.dev/v1/search"

// firecrawlMaxAttempts bounds retries against transient API failures.
// FireCrawl's free tier rate-limits aggressively, so a couple of spaced
// retries recover most transient 429/5xx responses.
const firecrawlMaxAttempts = 3

// FirecrawlConfig holds the settings for constructing a FirecrawlClient.
type FirecrawlConfig struct {
	// APIKey is the FireCrawl API key (required).
	APIKey string

	// Endpoint overrides the default API endpoint. Used in tests.
	Endpoint string

	// RetryDelay is the initial wait between attempts (default 2s; doubles
	// after each failure). Shortened in tests.
	RetryDelay time.Duration
}

// FirecrawlClient implements Client using the FireCrawl search API.
// It is safe for concurrent use.
type FirecrawlClient struct {
	apiKey     string
	endpoint   string
	retryDelay time.Duration
	client     *http.Client
}

// NewFirecrawlClient constructs a FirecrawlClient from the given config.
func NewFirecrawlClient(cfg *FirecrawlConfig) (*FirecrawlClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("firecrawl: APIKey must not be empty")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = firecrawlEndpoint
	}
	delay := cfg.RetryDelay
	if delay == 0 {
		delay = 2 * time.Second
	}

	return &FirecrawlClient{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		retryDelay: delay,
		client:     &http.Client{Timeout: 20 * time.Second},
	}, nil
}

// Name identifies this provider in logs and metrics.
func (c *FirecrawlClient) Name() string { return "firecrawl" }

// firecrawlResponse is the subset of the FireCrawl response we consume.
type firecrawlResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// Search returns up to maxResults hits for the query, retrying transient
// failures with a doubling delay between attempts.
func (c *FirecrawlClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	var lastErr error
	delay := c.retryDelay

	for attempt := 1; attempt <= firecrawlMaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("firecrawl: %w (after %v)", ctx.Err(), lastErr)
			case <-time.After(delay):
			}
			delay *= 2
		}

		results, retryable, err := c.searchOnce(ctx, query, maxResults)
		if err == nil {
			return results, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, fmt.Errorf("firecrawl: giving up after %d attempts: %w", firecrawlMaxAttempts, lastErr)
}

// searchOnce performs a single API call. The second return value reports
// whether the failure is worth retrying.
func (c *FirecrawlClient) searchOnce(ctx context.Context, query string, maxResults int) ([]Result, bool, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, false, fmt.Errorf("firecrawl: invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("query", query)
	if maxResults > 0 {
		q.Set("limit", strconv.Itoa(maxResults))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("firecrawl: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("firecrawl: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("firecrawl: HTTP %d", resp.StatusCode)
	}

	var result firecrawlResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, true, fmt.Errorf("firecrawl: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != "" {
			msg = result.Error
		}
		return nil, false, fmt.Errorf("firecrawl: %s", msg)
	}
	if !result.Success && result.Error != "" {
		return nil, false, fmt.Errorf("firecrawl: %s", result.Error)
	}

	results := make([]Result, 0, len(result.Data))
	for i, d := range result.Data {
		if maxResults > 0 && len(results) >= maxResults {
			break
		}
		results = append(results, Result{
			URL:     d.URL,
			Title:   d.Title,
			Snippet: d.Description,
			Rank:    i + 1,
		})
	}

	return results, false, nil
}
