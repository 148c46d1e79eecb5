package server

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qdrant/go-client/qdrant"

	"github.com/raqdev/docq-go/internal/websearch"
)

// LLMPinger probes an LLM backend by sending a minimal single-message generate
// request. It satisfies the Pinger interface and is used by GET /api/ready.
// Note that each probe consumes a small number of tokens.
type LLMPinger struct {
	// model is the chat model to probe.
	model model.ToolCallingChatModel
	// name identifies the backend in readiness responses (e.g. "groq").
	name string
}

// NewLLMPinger constructs an LLMPinger for the given model and backend name.
func NewLLMPinger(m model.ToolCallingChatModel, name string) *LLMPinger {
	return &LLMPinger{model: m, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping sends a one-word message and verifies a non-nil response.
func (p *LLMPinger) Ping(ctx context.Context) error {
	msgs := []*schema.Message{
		schema.UserMessage("ping"),
	}
	resp, err := p.model.Generate(ctx, msgs)
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("generate returned nil response")
	}
	return nil
}

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /api/ready.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	_, err := p.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// PgvectorPinger probes a PostgreSQL/pgvector backend via connection-pool ping.
type PgvectorPinger struct {
	// pool is the pgx connection pool to probe.
	pool *pgxpool.Pool
}

// NewPgvectorPinger constructs a PgvectorPinger for the given pool.
func NewPgvectorPinger(pool *pgxpool.Pool) *PgvectorPinger {
	return &PgvectorPinger{pool: pool}
}

// Name returns the dependency label used in readiness responses.
func (p *PgvectorPinger) Name() string { return "pgvector" }

// Ping verifies a connection can be acquired and the server responds.
func (p *PgvectorPinger) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// WebSearchPinger probes a web search provider with a minimal one-result
// query. Each probe consumes one search API call, so this pinger is only
// invoked on explicit /api/ready requests, never periodically.
type WebSearchPinger struct {
	// client is the web search client to probe.
	client websearch.Client
}

// NewWebSearchPinger constructs a WebSearchPinger for the given client.
func NewWebSearchPinger(client websearch.Client) *WebSearchPinger {
	return &WebSearchPinger{client: client}
}

// Name returns the provider label used in readiness responses.
func (p *WebSearchPinger) Name() string { return p.client.Name() }

// Ping issues a minimal search and verifies the provider responds.
func (p *WebSearchPinger) Ping(ctx context.Context) error {
	if _, err := p.client.Search(ctx, "ping", 1); err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return nil
}
