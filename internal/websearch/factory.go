package websearch

import (
	"fmt"
	"os"
	"strconv"
)

// NewFromEnv constructs a web search Client from environment variables.
//
// WEBSEARCH_PROVIDER selects the backend ("serper" or "firecrawl"). When
// unset, the provider is inferred from whichever API key is present, serper
// first. Returns (nil, nil) when no provider is configured — the caller
// decides whether web fallback is mandatory.
func NewFromEnv() (Client, error) {
	provider := os.Getenv("WEBSEARCH_PROVIDER")
	if provider == "" {
		switch {
		case os.Getenv("SERPER_API_KEY") != "":
			provider = "serper"
		case os.Getenv("FIRECRAWL_API_KEY") != "":
			provider = "firecrawl"
		default:
			return nil, nil
		}
	}

	switch provider {
	case "serper":
		apiKey := os.Getenv("SERPER_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("websearch: serper requires SERPER_API_KEY")
		}
		rpm := 0
		if v := os.Getenv("WEBSEARCH_REQUESTS_PER_MINUTE"); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				rpm = i
			}
		}
		return NewSerperClient(&SerperConfig{
			APIKey:            apiKey,
			RequestsPerMinute: rpm,
		})

	case "firecrawl":
		apiKey := os.Getenv("FIRECRAWL_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("websearch: firecrawl requires FIRECRAWL_API_KEY")
		}
		return NewFirecrawlClient(&FirecrawlConfig{APIKey: apiKey})

	default:
		return nil, fmt.Errorf("websearch: unknown provider %q — valid values: serper, firecrawl", provider)
	}
}
