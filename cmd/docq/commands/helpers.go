package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/cloudwego/eino/components/tool"

	"github.com/raqdev/docq-go/internal/embedder"
	"github.com/raqdev/docq-go/internal/extract"
	"github.com/raqdev/docq-go/internal/rag"
	"github.com/raqdev/docq-go/internal/router"
	"github.com/raqdev/docq-go/internal/store"
	"github.com/raqdev/docq-go/internal/tools"
	"github.com/raqdev/docq-go/internal/websearch"
)

// buildVectorStore constructs the vector store selected by VECTOR_BACKEND
// ("qdrant" or "pgvector"). When unset, pgvector is chosen if DATABASE_URL
// is present, otherwise qdrant.
func buildVectorStore(ctx context.Context, log *slog.Logger) (rag.VectorStore, error) {
	embBackend := embedder.ResolveBackend()
	dims := embedder.DefaultDimensions(embBackend)

	backend := os.Getenv("VECTOR_BACKEND")
	if backend == "" {
		if os.Getenv("DATABASE_URL") != "" {
			backend = "pgvector"
		} else {
			backend = "qdrant"
		}
	}

	switch backend {
	case "qdrant":
		host := getEnvOrDefault("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		collection := getEnvOrDefault("QDRANT_COLLECTION", "docq-chunks")

		store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
			Host:       host,
			Port:       port,
			Collection: collection,
			VectorSize: uint64(dims), //nolint:gosec // dimensions are bounded
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
		}
		log.Info("qdrant store ready",
			slog.String("host", host),
			slog.Int("port", port),
			slog.String("collection", collection),
		)
		return store, nil

	case "pgvector":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return nil, fmt.Errorf("VECTOR_BACKEND=pgvector requires DATABASE_URL")
		}
		store, err := rag.NewPgvectorStore(ctx, &rag.PgvectorConfig{
			DSN:        dsn,
			Table:      getEnvOrDefault("PGVECTOR_TABLE", "docq_chunks"),
			VectorSize: dims,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to pgvector: %w", err)
		}
		log.Info("pgvector store ready", slog.String("table", getEnvOrDefault("PGVECTOR_TABLE", "docq_chunks")))
		return store, nil

	default:
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q (want qdrant or pgvector)", backend)
	}
}

// buildRetriever constructs the embedder, vector store, and retriever stack.
// The returned close function releases the store connection.
func buildRetriever(ctx context.Context, log *slog.Logger) (rag.Retriever, func(), error) {
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	store, err := buildVectorStore(ctx, log)
	if err != nil {
		return nil, nil, err
	}

	retriever, err := rag.NewRetriever(emb, store, getEnvInt("ROUTER_TOP_K", 5))
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	return retriever, func() { _ = store.Close() }, nil
}

// buildWebSearch constructs the web search client from env, or nil when no
// provider is configured. A nil client means fallback queries fail with a
// FallbackUnavailableError that still carries the local evidence.
func buildWebSearch(log *slog.Logger) (websearch.Client, error) {
	client, err := websearch.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise web search: %w", err)
	}
	if client == nil {
		log.Warn("web search not configured — fallback answers will use local evidence only " +
			"(set SERPER_API_KEY or FIRECRAWL_API_KEY to enable)")
		return nil, nil
	}
	log.Info("web search ready", slog.String("provider", client.Name()))
	return client, nil
}

// buildRouter constructs the retrieval router from ROUTER_* env vars.
// ROUTER_THRESHOLD is required; everything else has defaults.
func buildRouter(retriever rag.Retriever, web websearch.Client, opts ...router.Option) (*router.Router, error) {
	raw := os.Getenv("ROUTER_THRESHOLD")
	if raw == "" {
		return nil, fmt.Errorf("ROUTER_THRESHOLD is required (sufficiency score in (0, 1], e.g. 0.65)")
	}
	threshold, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid ROUTER_THRESHOLD %q: %w", raw, err)
	}

	cfg := router.Config{
		Threshold:            float32(threshold),
		TopK:                 getEnvInt("ROUTER_TOP_K", 5),
		IndexTimeout:         time.Duration(getEnvInt("ROUTER_INDEX_TIMEOUT_SECONDS", 15)) * time.Second,
		SearchTimeout:        time.Duration(getEnvInt("ROUTER_SEARCH_TIMEOUT_SECONDS", 20)) * time.Second,
		MaxWebResults:        getEnvInt("WEBSEARCH_MAX_RESULTS", 5),
		DropDuplicateSources: os.Getenv("ROUTER_DROP_DUPLICATE_SOURCES") == "true",
		PrefetchFallback:     os.Getenv("ROUTER_PREFETCH_FALLBACK") == "true",
	}

	return router.New(retriever, web, cfg, opts...)
}

// buildTools constructs the Eino-compatible search tools to register with
// the agent. The web search tool is omitted when no provider is configured.
func buildTools(retriever rag.Retriever, web websearch.Client) []tool.BaseTool {
	toolList := []tool.BaseTool{
		tools.NewDocSearchTool(retriever, getEnvInt("ROUTER_TOP_K", 5)),
	}
	if web != nil {
		toolList = append(toolList, tools.NewWebSearchTool(web, getEnvInt("WEBSEARCH_MAX_RESULTS", 5)))
	}
	return toolList
}

// buildExtractors constructs the extractor registry. PDF support requires
// pdftotext on PATH; when missing, PDF files are rejected with a clear error
// at ingest time while text formats continue to work.
func buildExtractors(log *slog.Logger) *extract.Registry {
	extractors := []extract.Extractor{extract.NewTextExtractor()}

	runner, err := extract.NewExecRunner()
	if err != nil {
		log.Warn("pdf extraction unavailable", slog.Any("error", err))
	} else {
		extractors = append(extractors, extract.NewPDFExtractor(runner))
	}

	return extract.NewRegistry(extractors...)
}

// openHistory opens the conversation history store. DOCQ_HISTORY_DB
// overrides the default path (~/.docq/history.db); set it to "disabled" to
// turn history off. Failures disable history rather than aborting the
// command. The returned close function is always safe to call.
func openHistory(log *slog.Logger) (store.ConversationStore, func()) {
	noop := func() {}

	dbPath := os.Getenv("DOCQ_HISTORY_DB")
	if dbPath == "disabled" {
		log.Info("history: disabled via DOCQ_HISTORY_DB=disabled")
		return nil, noop
	}
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil, noop
		}
	}

	hs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil, noop
	}
	log.Info("history: store opened", slog.String("path", dbPath))
	return hs, func() { _ = hs.Close() }
}

// getEnvOrDefault returns the env var value or fallback when unset.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the env var parsed as int, or fallback when unset or invalid.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
