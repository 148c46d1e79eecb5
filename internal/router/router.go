// Package router decides, per query, whether the local document index holds
// enough evidence to answer or whether a web search fallback is needed. It is
// the seam between local retrieval and the external world: the answer
// generator receives the router's Decision and never talks to the index or
// the search API directly.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/raqdev/docq-go/internal/logging"
	"github.com/raqdev/docq-go/internal/rag"
	"github.com/raqdev/docq-go/internal/websearch"
)

// DecisionKind tags the two possible routing outcomes.
type DecisionKind int

const (
	// LocalSufficient means the index alone answers the query: the best local
	// chunk scored at or above the sufficiency threshold.
	LocalSufficient DecisionKind = iota

	// FallbackRequired means local evidence was insufficient and web search
	// results were fetched to supplement it.
	FallbackRequired
)

// String returns the kind name for logs and metrics labels.
func (k DecisionKind) String() string {
	switch k {
	case LocalSufficient:
		return "local_sufficient"
	case FallbackRequired:
		return "fallback_required"
	default:
		return fmt.Sprintf("DecisionKind(%d)", int(k))
	}
}

// Decision is the outcome of routing one query.
//
// Chunks always holds the local evidence ordered by descending similarity
// score — it is populated for both kinds. WebResults is non-nil only for
// FallbackRequired. Consumers that concatenate evidence must keep local
// chunks before web results; that ordering is the contract.
type Decision struct {
	// Kind tags the outcome.
	Kind DecisionKind

	// Chunks is the local evidence, best first. May be empty for
	// FallbackRequired when the index held nothing relevant.
	Chunks []rag.Document

	// WebResults is the web evidence, provider rank order. Nil for
	// LocalSufficient.
	WebResults []websearch.Result

	// TopScore is the highest local similarity score, 0 when no chunks matched.
	TopScore float32
}

// IndexUnavailableError reports that the vector index could not be queried.
// No fallback is attempted on index failure — an unreachable index is an
// operational fault, not a relevance signal.
type IndexUnavailableError struct {
	// Err is the underlying retrieval failure.
	Err error
}

func (e *IndexUnavailableError) Error() string {
	return fmt.Sprintf("router: index unavailable: %v", e.Err)
}

func (e *IndexUnavailableError) Unwrap() error { return e.Err }

// FallbackUnavailableError reports that fallback was triggered but the web
// search failed. Chunks carries the local evidence gathered before the
// failure so callers can still answer from partial context.
type FallbackUnavailableError struct {
	// Err is the underlying web search failure.
	Err error

	// Chunks is the local evidence retrieved before the fallback failed,
	// best first.
	Chunks []rag.Document
}

func (e *FallbackUnavailableError) Error() string {
	return fmt.Sprintf("router: web fallback unavailable: %v", e.Err)
}

func (e *FallbackUnavailableError) Unwrap() error { return e.Err }

// Config holds the routing policy. Threshold is required — there is no
// sensible universal default because sufficiency depends on the embedding
// model and corpus, so New rejects a zero value.
type Config struct {
	// Threshold is the minimum top similarity score for local evidence to be
	// considered sufficient. Required; must be in (0, 1].
	Threshold float32

	// TopK is the number of chunks requested from the index (default 5).
	TopK int

	// IndexTimeout bounds the retrieval call (default 15s).
	IndexTimeout time.Duration

	// SearchTimeout bounds the web search call (default 20s).
	SearchTimeout time.Duration

	// MaxWebResults caps the number of web results requested (default 5).
	MaxWebResults int

	// DropDuplicateSources removes web results whose URL matches the source
	// of a local chunk already in the decision. Off by default: the same URL
	// appearing in both lists is information, not noise.
	DropDuplicateSources bool

	// PrefetchFallback starts the web search concurrently with retrieval to
	// hide its latency. When the index turns out to be sufficient the
	// prefetched results are discarded; when the index fails the prefetch is
	// abandoned and IndexUnavailableError is still returned. Off by default
	// because it spends search-API quota on queries that may not need it.
	PrefetchFallback bool
}

// validate applies defaults and rejects unusable configuration.
func (c *Config) validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("router: Threshold must be set in (0, 1], got %v", c.Threshold)
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.IndexTimeout <= 0 {
		c.IndexTimeout = 15 * time.Second
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = 20 * time.Second
	}
	if c.MaxWebResults <= 0 {
		c.MaxWebResults = 5
	}
	return nil
}

// Router routes queries between local retrieval and web search fallback.
// It is stateless per call and safe for concurrent use. Retries and caching
// belong to the collaborators, not here.
type Router struct {
	retriever rag.Retriever
	web       websearch.Client
	cfg       Config
	metrics   *routerMetrics
}

// New constructs a Router. retriever is required; web may be nil, in which
// case any query that needs fallback fails with FallbackUnavailableError.
func New(retriever rag.Retriever, web websearch.Client, cfg Config, opts ...Option) (*Router, error) {
	if retriever == nil {
		return nil, fmt.Errorf("router: retriever must not be nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	r := &Router{
		retriever: retriever,
		web:       web,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Option customizes a Router at construction time.
type Option func(*Router)

// WithMetrics registers routing metrics against reg and attaches them to the
// router. Without this option the router records nothing.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *Router) {
		r.metrics = newRouterMetrics(reg)
	}
}

// Route decides how the given query should be answered.
//
// It queries the index first; when the best local score reaches the
// threshold, the decision is LocalSufficient and web search is never
// invoked (unless PrefetchFallback speculatively started one, whose result
// is discarded). Otherwise the web client is consulted and the decision is
// FallbackRequired with local chunks preserved ahead of web results.
func (r *Router) Route(ctx context.Context, query string) (*Decision, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("router: query must not be empty")
	}

	log := logging.FromContext(ctx)

	var prefetch <-chan prefetchResult
	var cancelPrefetch context.CancelFunc
	if r.cfg.PrefetchFallback && r.web != nil {
		prefetch, cancelPrefetch = r.startPrefetch(ctx, query)
		defer cancelPrefetch()
	}

	chunks, err := r.retrieve(ctx, query)
	if err != nil {
		r.metrics.observeDecision("index_error", 0)
		return nil, &IndexUnavailableError{Err: err}
	}

	topScore := float32(0)
	if len(chunks) > 0 {
		topScore = chunks[0].Score
	}

	if len(chunks) > 0 && topScore >= r.cfg.Threshold {
		log.Debug("router: local evidence sufficient",
			slog.Int("chunks", len(chunks)),
			slog.Float64("top_score", float64(topScore)),
			slog.Float64("threshold", float64(r.cfg.Threshold)),
		)
		r.metrics.observeDecision("local_sufficient", topScore)
		return &Decision{
			Kind:     LocalSufficient,
			Chunks:   chunks,
			TopScore: topScore,
		}, nil
	}

	log.Debug("router: falling back to web search",
		slog.Int("chunks", len(chunks)),
		slog.Float64("top_score", float64(topScore)),
		slog.Float64("threshold", float64(r.cfg.Threshold)),
	)

	results, err := r.fallback(ctx, query, prefetch)
	if err != nil {
		r.metrics.observeDecision("fallback_error", topScore)
		return nil, &FallbackUnavailableError{Err: err, Chunks: chunks}
	}

	if r.cfg.DropDuplicateSources {
		results = dropDuplicates(chunks, results)
	}

	r.metrics.observeDecision("fallback_required", topScore)
	return &Decision{
		Kind:       FallbackRequired,
		Chunks:     chunks,
		WebResults: results,
		TopScore:   topScore,
	}, nil
}

// retrieve queries the index under IndexTimeout and returns chunks sorted by
// descending score. Stores already return best-first; the sort guards the
// threshold comparison against a store that does not.
func (r *Router) retrieve(ctx context.Context, query string) ([]rag.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.IndexTimeout)
	defer cancel()

	start := time.Now()
	chunks, err := r.retriever.Retrieve(ctx, query, r.cfg.TopK)
	r.metrics.observeRetrieval(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
	return chunks, nil
}

// prefetchResult carries the outcome of a speculative web search.
type prefetchResult struct {
	results []websearch.Result
	err     error
}

// startPrefetch launches the web search concurrently with retrieval. The
// returned channel is buffered so the goroutine never leaks even when the
// result is discarded.
func (r *Router) startPrefetch(ctx context.Context, query string) (<-chan prefetchResult, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.SearchTimeout)
	ch := make(chan prefetchResult, 1)
	go func() {
		results, err := r.web.Search(ctx, query, r.cfg.MaxWebResults)
		ch <- prefetchResult{results: results, err: err}
	}()
	return ch, cancel
}

// fallback obtains web results, consuming the prefetch when one is in flight.
func (r *Router) fallback(ctx context.Context, query string, prefetch <-chan prefetchResult) ([]websearch.Result, error) {
	if r.web == nil {
		return nil, fmt.Errorf("router: no web search client configured")
	}

	if prefetch != nil {
		select {
		case res := <-prefetch:
			return res.results, res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.SearchTimeout)
	defer cancel()

	start := time.Now()
	results, err := r.web.Search(ctx, query, r.cfg.MaxWebResults)
	r.metrics.observeWebSearch(time.Since(start), err)
	return results, err
}

// dropDuplicates removes web results whose URL matches a local chunk source.
func dropDuplicates(chunks []rag.Document, results []websearch.Result) []websearch.Result {
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if c.Source != "" {
			seen[c.Source] = struct{}{}
		}
	}

	kept := results[:0]
	for _, res := range results {
		if _, dup := seen[res.URL]; dup {
			continue
		}
		kept = append(kept, res)
	}
	return kept
}
