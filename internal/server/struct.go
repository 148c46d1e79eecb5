package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/raqdev/docq-go/internal/agent"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// CorpusDir is the directory where uploaded documents are stored and
	// where GET /api/corpus lists from. Defaults to "corpus".
	CorpusDir string
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry is where server metrics are registered.
	// Defaults to prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer serves GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// querier is the interface handleAsk calls to stream an answer.
// *agent.DocAgent satisfies it; tests inject a fake.
type querier interface {
	// Query streams the answer for userMessage to w and returns the
	// collected result including the routing decision and citations.
	Query(ctx context.Context, session, userMessage string, w io.Writer) (*agent.Result, error)
}

// ingester is the interface handleDocumentUpload calls to index an uploaded
// file. *ingestion.Pipeline satisfies it; tests inject a fake.
type ingester interface {
	// IngestFile extracts, chunks, embeds, and upserts a single file.
	// Returns the number of chunks written.
	IngestFile(ctx context.Context, path string) (int, error)
}

// Server is the HTTP server that wraps the DocAgent and ingestion pipeline.
type Server struct {
	// querier answers /api/ask requests; set to the DocAgent in production,
	// overridden by a fake in tests.
	querier querier
	// ingester indexes uploaded documents for /api/documents.
	ingester ingester
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	// Question is the user's natural language query.
	Question string `json:"question"`
	// Session groups multi-turn conversations; optional.
	Session string `json:"session,omitempty"`
}

// routingEvent is the JSON payload of the SSE "routing" event, emitted once
// per /api/ask request before the answer tokens.
type routingEvent struct {
	// Outcome is "local_sufficient" or "fallback_required".
	Outcome string `json:"outcome"`
	// TopScore is the best local similarity score for the query.
	TopScore float32 `json:"topScore"`
	// LocalSources is the number of corpus chunks in the evidence.
	LocalSources int `json:"localSources"`
	// WebSources is the number of web results in the evidence.
	WebSources int `json:"webSources"`
}

// uploadResponse is the JSON response for POST /api/documents.
type uploadResponse struct {
	// File is the stored filename, relative to the corpus directory.
	File string `json:"file"`
	// Chunks is the number of chunks indexed from the file.
	Chunks int `json:"chunks"`
}

// corpusResponse is the JSON response for GET /api/corpus.
type corpusResponse struct {
	// Dir is the corpus directory that was listed.
	Dir string `json:"dir"`
	// Files is the recursive list of ingestable documents found under Dir,
	// returned as paths relative to Dir (e.g. "policies/retention.pdf").
	Files []string `json:"files"`
	// Count is len(Files), included for client convenience.
	Count int `json:"count"`
}
