package router

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/raqdev/docq-go/internal/rag"
	"github.com/raqdev/docq-go/internal/websearch"
)

// fakeRetriever returns canned chunks or a canned error and counts calls.
type fakeRetriever struct {
	chunks []rag.Document
	err    error
	calls  atomic.Int32
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, topK int) ([]rag.Document, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]rag.Document, len(f.chunks))
	copy(out, f.chunks)
	return out, nil
}

// fakeWebClient returns canned results or a canned error and counts calls.
type fakeWebClient struct {
	results []websearch.Result
	err     error
	calls   atomic.Int32
}

func (f *fakeWebClient) Search(ctx context.Context, query string, maxResults int) ([]websearch.Result, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeWebClient) Name() string { return "fake" }

func chunk(id string, score float32) rag.Document {
	return rag.Document{
		ID:      id,
		Content: "content of " + id,
		Source:  "docs/" + id + ".md",
		Score:   score,
	}
}

func newTestRouter(t *testing.T, ret rag.Retriever, web websearch.Client, cfg Config) *Router {
	t.Helper()
	if cfg.Threshold == 0 {
		cfg.Threshold = 0.7
	}
	r, err := New(ret, web, cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return r
}

func TestRoute_LocalSufficientSkipsWebSearch(t *testing.T) {
	t.Parallel()

	web := &fakeWebClient{}
	ret := &fakeRetriever{chunks: []rag.Document{
		chunk("a", 0.91),
		chunk("b", 0.74),
	}}
	r := newTestRouter(t, ret, web, Config{Threshold: 0.7})

	d, err := r.Route(context.Background(), "where is the retention policy?")
	if err != nil {
		t.Fatalf("Route() failed: %v", err)
	}

	if d.Kind != LocalSufficient {
		t.Errorf("Kind = %v, want LocalSufficient", d.Kind)
	}
	if got := web.calls.Load(); got != 0 {
		t.Errorf("web client called %d times, want 0", got)
	}
	if len(d.Chunks) != 2 {
		t.Errorf("got %d chunks, want 2", len(d.Chunks))
	}
	if d.WebResults != nil {
		t.Errorf("WebResults = %v, want nil", d.WebResults)
	}
	if d.TopScore != 0.91 {
		t.Errorf("TopScore = %v, want 0.91", d.TopScore)
	}
}

func TestRoute_ScoreAtThresholdIsSufficient(t *testing.T) {
	t.Parallel()

	web := &fakeWebClient{}
	ret := &fakeRetriever{chunks: []rag.Document{chunk("a", 0.7)}}
	r := newTestRouter(t, ret, web, Config{Threshold: 0.7})

	d, err := r.Route(context.Background(), "q")
	if err != nil {
		t.Fatalf("Route() failed: %v", err)
	}
	if d.Kind != LocalSufficient {
		t.Errorf("Kind = %v, want LocalSufficient (score == threshold)", d.Kind)
	}
	if got := web.calls.Load(); got != 0 {
		t.Errorf("web client called %d times, want 0", got)
	}
}

func TestRoute_LowScoreTriggersFallback(t *testing.T) {
	t.Parallel()

	web := &fakeWebClient{results: []websearch.Result{
		{URL: "https://example.com/x", Title: "X", Snippet: "about x", Rank: 1},
	}}
	ret := &fakeRetriever{chunks: []rag.Document{
		chunk("a", 0.55),
		chunk("b", 0.40),
	}}
	r := newTestRouter(t, ret, web, Config{Threshold: 0.7})

	d, err := r.Route(context.Background(), "q")
	if err != nil {
		t.Fatalf("Route() failed: %v", err)
	}

	if d.Kind != FallbackRequired {
		t.Errorf("Kind = %v, want FallbackRequired", d.Kind)
	}
	if got := web.calls.Load(); got != 1 {
		t.Errorf("web client called %d times, want 1", got)
	}
	// Local chunks are preserved ahead of web results, best first.
	if len(d.Chunks) != 2 || d.Chunks[0].ID != "a" || d.Chunks[1].ID != "b" {
		t.Errorf("Chunks = %+v, want [a b] best first", d.Chunks)
	}
	if len(d.WebResults) != 1 || d.WebResults[0].URL != "https://example.com/x" {
		t.Errorf("WebResults = %+v", d.WebResults)
	}
}

func TestRoute_EmptyIndexTriggersFallback(t *testing.T) {
	t.Parallel()

	web := &fakeWebClient{results: []websearch.Result{
		{URL: "https://example.com/y", Rank: 1},
	}}
	ret := &fakeRetriever{} // no chunks
	r := newTestRouter(t, ret, web, Config{Threshold: 0.7})

	d, err := r.Route(context.Background(), "q")
	if err != nil {
		t.Fatalf("Route() failed: %v", err)
	}
	if d.Kind != FallbackRequired {
		t.Errorf("Kind = %v, want FallbackRequired", d.Kind)
	}
	if len(d.Chunks) != 0 {
		t.Errorf("got %d chunks, want 0", len(d.Chunks))
	}
	if len(d.WebResults) != 1 {
		t.Errorf("got %d web results, want 1", len(d.WebResults))
	}
}

func TestRoute_IndexErrorDoesNotAttemptFallback(t *testing.T) {
	t.Parallel()

	web := &fakeWebClient{}
	ret := &fakeRetriever{err: errors.New("connection refused")}
	r := newTestRouter(t, ret, web, Config{Threshold: 0.7})

	_, err := r.Route(context.Background(), "q")
	var idxErr *IndexUnavailableError
	if !errors.As(err, &idxErr) {
		t.Fatalf("error = %v, want *IndexUnavailableError", err)
	}
	if got := web.calls.Load(); got != 0 {
		t.Errorf("web client called %d times, want 0", got)
	}
}

func TestRoute_WebFailureCarriesLocalChunks(t *testing.T) {
	t.Parallel()

	web := &fakeWebClient{err: errors.New("quota exceeded")}
	ret := &fakeRetriever{chunks: []rag.Document{chunk("a", 0.3)}}
	r := newTestRouter(t, ret, web, Config{Threshold: 0.7})

	_, err := r.Route(context.Background(), "q")
	var fbErr *FallbackUnavailableError
	if !errors.As(err, &fbErr) {
		t.Fatalf("error = %v, want *FallbackUnavailableError", err)
	}
	if len(fbErr.Chunks) != 1 || fbErr.Chunks[0].ID != "a" {
		t.Errorf("error Chunks = %+v, want the local chunk preserved", fbErr.Chunks)
	}
}

func TestRoute_NoWebClientFailsFallback(t *testing.T) {
	t.Parallel()

	ret := &fakeRetriever{chunks: []rag.Document{chunk("a", 0.3)}}
	r := newTestRouter(t, ret, nil, Config{Threshold: 0.7})

	_, err := r.Route(context.Background(), "q")
	var fbErr *FallbackUnavailableError
	if !errors.As(err, &fbErr) {
		t.Fatalf("error = %v, want *FallbackUnavailableError", err)
	}
}

func TestRoute_EmptyQueryRejected(t *testing.T) {
	t.Parallel()

	ret := &fakeRetriever{}
	r := newTestRouter(t, ret, nil, Config{Threshold: 0.7})

	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := r.Route(context.Background(), q); err == nil {
			t.Errorf("Route(%q) succeeded, want error", q)
		}
	}
	if got := ret.calls.Load(); got != 0 {
		t.Errorf("retriever called %d times for empty queries, want 0", got)
	}
}

func TestRoute_IsIdempotent(t *testing.T) {
	t.Parallel()

	ret := &fakeRetriever{chunks: []rag.Document{chunk("a", 0.8)}}
	r := newTestRouter(t, ret, nil, Config{Threshold: 0.7})

	first, err := r.Route(context.Background(), "q")
	if err != nil {
		t.Fatalf("first Route() failed: %v", err)
	}
	second, err := r.Route(context.Background(), "q")
	if err != nil {
		t.Fatalf("second Route() failed: %v", err)
	}
	if first.Kind != second.Kind || first.TopScore != second.TopScore || len(first.Chunks) != len(second.Chunks) {
		t.Errorf("decisions differ: %+v vs %+v", first, second)
	}
}

func TestRoute_SortsChunksByScore(t *testing.T) {
	t.Parallel()

	// A store that returns results out of order must not confuse the
	// threshold comparison.
	ret := &fakeRetriever{chunks: []rag.Document{
		chunk("low", 0.2),
		chunk("high", 0.95),
		chunk("mid", 0.5),
	}}
	r := newTestRouter(t, ret, nil, Config{Threshold: 0.7})

	d, err := r.Route(context.Background(), "q")
	if err != nil {
		t.Fatalf("Route() failed: %v", err)
	}
	if d.Kind != LocalSufficient {
		t.Errorf("Kind = %v, want LocalSufficient", d.Kind)
	}
	want := []string{"high", "mid", "low"}
	for i, id := range want {
		if d.Chunks[i].ID != id {
			t.Errorf("Chunks[%d].ID = %q, want %q", i, d.Chunks[i].ID, id)
		}
	}
}

func TestRoute_DropDuplicateSources(t *testing.T) {
	t.Parallel()

	web := &fakeWebClient{results: []websearch.Result{
		{URL: "docs/a.md", Rank: 1},
		{URL: "https://example.com/new", Rank: 2},
	}}
	ret := &fakeRetriever{chunks: []rag.Document{chunk("a", 0.3)}}
	r := newTestRouter(t, ret, web, Config{Threshold: 0.7, DropDuplicateSources: true})

	d, err := r.Route(context.Background(), "q")
	if err != nil {
		t.Fatalf("Route() failed: %v", err)
	}
	if len(d.WebResults) != 1 || d.WebResults[0].URL != "https://example.com/new" {
		t.Errorf("WebResults = %+v, want only the non-duplicate URL", d.WebResults)
	}
}

func TestRoute_DuplicatesKeptByDefault(t *testing.T) {
	t.Parallel()

	web := &fakeWebClient{results: []websearch.Result{
		{URL: "docs/a.md", Rank: 1},
	}}
	ret := &fakeRetriever{chunks: []rag.Document{chunk("a", 0.3)}}
	r := newTestRouter(t, ret, web, Config{Threshold: 0.7})

	d, err := r.Route(context.Background(), "q")
	if err != nil {
		t.Fatalf("Route() failed: %v", err)
	}
	if len(d.WebResults) != 1 {
		t.Errorf("got %d web results, want 1 (dedup must be opt-in)", len(d.WebResults))
	}
}

func TestRoute_PrefetchFallbackUsesSpeculativeResults(t *testing.T) {
	t.Parallel()

	web := &fakeWebClient{results: []websearch.Result{{URL: "https://example.com/p", Rank: 1}}}
	ret := &fakeRetriever{chunks: []rag.Document{chunk("a", 0.3)}}
	r := newTestRouter(t, ret, web, Config{Threshold: 0.7, PrefetchFallback: true})

	d, err := r.Route(context.Background(), "q")
	if err != nil {
		t.Fatalf("Route() failed: %v", err)
	}
	if d.Kind != FallbackRequired {
		t.Errorf("Kind = %v, want FallbackRequired", d.Kind)
	}
	if len(d.WebResults) != 1 {
		t.Errorf("got %d web results, want 1", len(d.WebResults))
	}
	if got := web.calls.Load(); got != 1 {
		t.Errorf("web client called %d times, want 1 (prefetch reused, not repeated)", got)
	}
}

func TestNew_ThresholdRequired(t *testing.T) {
	t.Parallel()

	cases := []float32{0, -0.1, 1.5}
	for _, th := range cases {
		t.Run(fmt.Sprintf("threshold=%v", th), func(t *testing.T) {
			t.Parallel()
			if _, err := New(&fakeRetriever{}, nil, Config{Threshold: th}); err == nil {
				t.Errorf("New() with Threshold=%v succeeded, want error", th)
			}
		})
	}
}

func TestNew_NilRetrieverRejected(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, nil, Config{Threshold: 0.7}); err == nil {
		t.Fatal("New(nil retriever) succeeded, want error")
	}
}
