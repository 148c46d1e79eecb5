package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/raqdev/docq-go/internal/agent"
	"github.com/raqdev/docq-go/internal/embedder"
	"github.com/raqdev/docq-go/internal/ingestion"
	"github.com/raqdev/docq-go/internal/logging"
	"github.com/raqdev/docq-go/internal/provider"
	"github.com/raqdev/docq-go/internal/rag"
	"github.com/raqdev/docq-go/internal/router"
	"github.com/raqdev/docq-go/internal/server"
	"github.com/raqdev/docq-go/internal/tracing"
	"github.com/raqdev/docq-go/internal/websearch"
)

// NewServeCmd constructs the `docq serve` command, which starts the HTTP
// server exposing the question-answering API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var corpusDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the DocQ HTTP server",
		Long: `Start the DocQ HTTP server on localhost.

The server exposes a REST/SSE API: POST /api/ask streams answers with
routing and citation events, POST /api/documents ingests uploaded files,
GET /api/corpus lists the corpus, and /api/health, /api/ready, and /metrics
cover operations.

Examples:
  docq serve
  docq serve --port 9090 --corpus-dir ./corpus
  MODEL_PROVIDER=groq ROUTER_THRESHOLD=0.7 docq serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", getEnvOrDefault("MODEL_PROVIDER", "ollama")))

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			vectorStore, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer vectorStore.Close()

			retriever, err := rag.NewRetriever(emb, vectorStore, getEnvInt("ROUTER_TOP_K", 5))
			if err != nil {
				return fmt.Errorf("serve: failed to create retriever: %w", err)
			}

			web, err := buildWebSearch(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			queryRouter, err := buildRouter(retriever, web, router.WithMetrics(prometheus.DefaultRegisterer))
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			historyStore, closeHistory := openHistory(log)
			defer closeHistory()

			docAgent, err := agent.New(ctx, &agent.Config{
				ChatModel: chatModel,
				Router:    queryRouter,
				Tools:     buildTools(retriever, web),
				History:   historyStore,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to initialise agent: %w", err)
			}

			pipeline, err := ingestion.NewPipeline(emb, vectorStore, buildExtractors(log), nil)
			if err != nil {
				return fmt.Errorf("serve: failed to create ingestion pipeline: %w", err)
			}

			srv, err := server.New(docAgent, pipeline, &server.Config{
				Host:      host,
				Port:      port,
				CorpusDir: corpusDir,
				Logger:    log,
				Pingers:   buildPingers(chatModel, vectorStore, web),
				APIKey:    os.Getenv("DOCQ_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")
	cmd.Flags().StringVar(&corpusDir, "corpus-dir", getEnvOrDefault("DOCQ_CORPUS_DIR", "corpus"), "Directory where uploaded documents are stored")

	return cmd
}

// buildPingers assembles the dependency probes for GET /api/ready: the LLM
// backend, the configured vector store, and the web search provider when one
// is configured. Note the LLM and web search probes each consume a small
// amount of quota per readiness check.
func buildPingers(chatModel model.ToolCallingChatModel, vectorStore rag.VectorStore, web websearch.Client) []server.Pinger {
	pingers := []server.Pinger{
		server.NewLLMPinger(chatModel, getEnvOrDefault("MODEL_PROVIDER", "ollama")),
	}

	switch s := vectorStore.(type) {
	case *rag.QdrantStore:
		pingers = append(pingers, server.NewQdrantPinger(s.Client()))
	case *rag.PgvectorStore:
		pingers = append(pingers, server.NewPgvectorPinger(s.Pool()))
	}

	if web != nil {
		pingers = append(pingers, server.NewWebSearchPinger(web))
	}

	return pingers
}
