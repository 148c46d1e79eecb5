package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSerperClient_Search(t *testing.T) {
	t.Parallel()

	var gotKey, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		var req serperRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotBody = req.Q

		json.NewEncoder(w).Encode(map[string]any{
			"organic": []map[string]any{
				{"title": "Retention policy overview", "link": "https://example.com/a", "snippet": "Records are kept for 7 years.", "position": 1},
				{"title": "Archive guidelines", "link": "https://example.com/b", "snippet": "Archived data is read-only.", "position": 2},
			},
		})
	}))
	defer srv.Close()

	c, err := NewSerperClient(&SerperConfig{APIKey: "test-key", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewSerperClient() failed: %v", err)
	}

	results, err := c.Search(context.Background(), "data retention policy", 5)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}

	if gotKey != "test-key" {
		t.Errorf("X-API-KEY = %q, want %q", gotKey, "test-key")
	}
	if gotBody != "data retention policy" {
		t.Errorf("query = %q, want %q", gotBody, "data retention policy")
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].URL != "https://example.com/a" {
		t.Errorf("results[0].URL = %q", results[0].URL)
	}
	if results[0].Rank != 1 || results[1].Rank != 2 {
		t.Errorf("ranks = %d, %d; want 1, 2", results[0].Rank, results[1].Rank)
	}
}

func TestSerperClient_SearchTruncatesToMaxResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"organic": []map[string]any{
				{"title": "one", "link": "https://example.com/1"},
				{"title": "two", "link": "https://example.com/2"},
				{"title": "three", "link": "https://example.com/3"},
			},
		})
	}))
	defer srv.Close()

	c, err := NewSerperClient(&SerperConfig{APIKey: "k", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewSerperClient() failed: %v", err)
	}

	results, err := c.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
	// Ranks fall back to list position when the provider omits them.
	if results[1].Rank != 2 {
		t.Errorf("results[1].Rank = %d, want 2", results[1].Rank)
	}
}

func TestSerperClient_SearchAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{"message": "invalid API key"})
	}))
	defer srv.Close()

	c, err := NewSerperClient(&SerperConfig{APIKey: "bad", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewSerperClient() failed: %v", err)
	}

	if _, err := c.Search(context.Background(), "q", 5); err == nil {
		t.Fatal("expected error for HTTP 403, got nil")
	}
}

func TestNewSerperClient_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := NewSerperClient(&SerperConfig{}); err == nil {
		t.Fatal("expected error for empty APIKey, got nil")
	}
}
