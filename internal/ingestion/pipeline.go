// Package ingestion implements the document ingestion pipeline.
// It extracts text from source files, chunks the content with overlap,
// embeds each chunk, and upserts the results into the vector store.
// This pipeline is invoked by the `docq ingest` CLI command and the
// server's document upload endpoint.
package ingestion

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/raqdev/docq-go/internal/extract"
	"github.com/raqdev/docq-go/internal/rag"
)

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per document chunk.
	// Defaults to 1000 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters to overlap between consecutive chunks.
	// Defaults to 100 if zero.
	ChunkOverlap int

	// Workers is the number of files processed concurrently. Defaults to 4.
	Workers int
}

// Pipeline orchestrates the extract → chunk → embed → upsert flow for a set
// of document files.
type Pipeline struct {
	// embedder converts text chunks into dense vector embeddings.
	embedder rag.Embedder

	// store persists the embedded chunks.
	store rag.VectorStore

	// extractors converts source files to plain text.
	extractors *extract.Registry

	// cfg holds the resolved pipeline configuration.
	cfg *Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, extractors *extract.Registry, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if extractors == nil {
		return nil, fmt.Errorf("ingestion: extractors must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	return &Pipeline{
		embedder:   embedder,
		store:      store,
		extractors: extractors,
		cfg:        cfg,
	}, nil
}

// FileResult summarizes the ingestion of one file.
type FileResult struct {
	// Path is the source file path.
	Path string

	// Chunks is the number of chunks stored for this file.
	Chunks int

	// Err is non-nil when the file failed to ingest.
	Err error
}

// Ingest processes the given files concurrently across a worker pool and
// returns a result per file in input order. Progress is reported via the
// optional progress callback, which may be called from multiple goroutines.
// Ingest returns an error only when the pool itself fails; per-file failures
// are reported in the results.
func (p *Pipeline) Ingest(ctx context.Context, paths []string, progress func(msg string)) ([]FileResult, error) {
	if progress == nil {
		progress = func(string) {}
	}

	pool, err := ants.NewPool(p.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("ingestion: create worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]FileResult, len(paths))
	var wg sync.WaitGroup

	for i, path := range paths {
		i, path := i, path
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			n, err := p.ingestFile(ctx, path, progress)
			results[i] = FileResult{Path: path, Chunks: n, Err: err}
		})
		if submitErr != nil {
			wg.Done()
			results[i] = FileResult{Path: path, Err: fmt.Errorf("ingestion: submit %s: %w", path, submitErr)}
		}
	}

	wg.Wait()
	return results, nil
}

// IngestFile processes a single file and returns the number of chunks stored.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (int, error) {
	return p.ingestFile(ctx, path, func(string) {})
}

// ingestFile runs the extract → chunk → embed → upsert flow for one file.
func (p *Pipeline) ingestFile(ctx context.Context, path string, progress func(msg string)) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	progress(fmt.Sprintf("extracting %s", path))
	content, err := p.extractors.Extract(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("ingestion: extract failed for %s: %w", path, err)
	}

	chunks := Chunk(content, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		progress(fmt.Sprintf("skipped %s: no text content", path))
		return 0, nil
	}
	progress(fmt.Sprintf("chunked %s into %d chunks", path, len(chunks)))

	embeddings, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("ingestion: embedding failed for %s: %w", path, err)
	}

	meta := InferMetadata(path)
	docs := make([]rag.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, rag.Document{
			ID:      chunkID(path, i),
			Content: chunk,
			Source:  path,
			Metadata: map[string]string{
				"title":       meta.Title,
				"doc_type":    meta.DocType,
				"collection":  meta.Collection,
				"chunk_index": fmt.Sprintf("%d", i),
			},
		})
	}

	if err := p.store.Upsert(ctx, docs, embeddings); err != nil {
		return 0, fmt.Errorf("ingestion: upsert failed for %s: %w", path, err)
	}

	progress(fmt.Sprintf("ingested %d chunks from %s", len(chunks), path))
	return len(chunks), nil
}

// Chunk splits text into overlapping chunks of at most size characters.
// Overlap characters are repeated between consecutive chunks so sentences
// spanning a boundary survive in at least one chunk intact.
func Chunk(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	for start := 0; start < len(text); start += size - overlap {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}

// chunkID generates a deterministic ID for a document chunk based on its
// source path and chunk index, so re-ingesting a file overwrites its chunks.
func chunkID(source string, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", source, index)))
	return fmt.Sprintf("%x", h[:16])
}
