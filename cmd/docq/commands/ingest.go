package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/raqdev/docq-go/internal/embedder"
	"github.com/raqdev/docq-go/internal/ingestion"
	"github.com/raqdev/docq-go/internal/logging"
)

// NewIngestCmd constructs the `docq ingest` command, which runs the document
// ingestion pipeline to populate the vector store.
func NewIngestCmd() *cobra.Command {
	var chunkSize int
	var chunkOverlap int
	var workers int

	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Ingest documents into the vector store",
		Long: `Extract, chunk, embed, and index documents into the vector store.

Supported formats: PDF (requires pdftotext from poppler-utils), markdown,
plain text, and reStructuredText. Files are processed concurrently; each
chunk carries title, doc_type, and collection metadata inferred from the
file path.

Required environment variables:
  VECTOR_BACKEND       qdrant (default) or pgvector
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: docq-chunks)
  DATABASE_URL         PostgreSQL DSN (pgvector backend)
  EMBEDDING_PROVIDER   Embedding backend: ollama, openai, azure (default: ollama)
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  docq ingest docs/handbook.pdf
  docq ingest policies/*.md notes/*.txt
  docq ingest --chunk-size 1500 --workers 8 corpus/**/*.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if err := embedder.ValidateForRAG(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("provider", embedder.ResolveBackend()))

			store, err := buildVectorStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer store.Close()

			pipeline, err := ingestion.NewPipeline(emb, store, buildExtractors(log), &ingestion.Config{
				ChunkSize:    chunkSize,
				ChunkOverlap: chunkOverlap,
				Workers:      workers,
			})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			log.Info("starting ingestion", slog.Int("files", len(args)))

			results, err := pipeline.Ingest(ctx, args, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("ingest: pipeline failed: %w", err)
			}

			var failed int
			var chunks int
			for _, res := range results {
				if res.Err != nil {
					failed++
					log.Error("file failed",
						slog.String("path", res.Path),
						slog.Any("error", res.Err),
					)
					continue
				}
				chunks += res.Chunks
				log.Info("file indexed",
					slog.String("path", res.Path),
					slog.Int("chunks", res.Chunks),
				)
			}

			log.Info("ingestion complete",
				slog.Int("files", len(results)-failed),
				slog.Int("failed", failed),
				slog.Int("chunks", chunks),
			)

			if failed == len(results) {
				return fmt.Errorf("ingest: all %d files failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk-size", 1000, "Chunk size in characters")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 100, "Overlap between consecutive chunks in characters")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Number of files processed concurrently")

	return cmd
}
