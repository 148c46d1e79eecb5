package server

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/raqdev/docq-go/internal/logging"
)

// maxUploadBytes caps the size of a single document upload (32 MiB).
const maxUploadBytes = 32 << 20

// ingestableExts lists the file extensions the ingestion pipeline accepts.
// Kept in sync with the extractor registry.
var ingestableExts = map[string]bool{
	".pdf":      true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".rst":      true,
}

// handleCorpus handles GET /api/corpus. It recursively lists the ingestable
// documents under the configured corpus directory, returning paths relative
// to it. A missing corpus directory is reported as an empty corpus, not an
// error, so fresh installs work without setup.
func (s *Server) handleCorpus(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	resp := corpusResponse{Dir: s.cfg.CorpusDir, Files: []string{}}

	err := filepath.WalkDir(s.cfg.CorpusDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Skip hidden directories such as .git.
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !ingestableExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, relErr := filepath.Rel(s.cfg.CorpusDir, path)
		if relErr != nil {
			return relErr
		}
		resp.Files = append(resp.Files, rel)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		log.Error("corpus: listing failed", slog.Any("error", err))
		http.Error(w, "failed to list corpus", http.StatusInternalServerError)
		return
	}

	sort.Strings(resp.Files)
	resp.Count = len(resp.Files)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("corpus: encode error", slog.Any("error", err))
	}
}

// handleDocumentUpload handles POST /api/documents. It accepts a multipart
// form with a single "file" field, stores the document under the corpus
// directory, and runs it through the ingestion pipeline synchronously.
func (s *Server) handleDocumentUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if s.ingester == nil {
		http.Error(w, "document ingestion is not configured", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "multipart form with a 'file' field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name, err := sanitizeFilename(header.Filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !ingestableExts[strings.ToLower(filepath.Ext(name))] {
		http.Error(w, fmt.Sprintf("unsupported file type %q", filepath.Ext(name)), http.StatusUnsupportedMediaType)
		return
	}

	if err := os.MkdirAll(s.cfg.CorpusDir, 0o755); err != nil {
		log.Error("upload: mkdir failed", slog.Any("error", err))
		http.Error(w, "failed to store document", http.StatusInternalServerError)
		return
	}

	dst := filepath.Join(s.cfg.CorpusDir, name)
	out, err := os.Create(dst)
	if err != nil {
		log.Error("upload: create failed", slog.String("path", dst), slog.Any("error", err))
		http.Error(w, "failed to store document", http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(dst)
		log.Error("upload: write failed", slog.String("path", dst), slog.Any("error", err))
		http.Error(w, "failed to store document", http.StatusInternalServerError)
		return
	}
	if err := out.Close(); err != nil {
		http.Error(w, "failed to store document", http.StatusInternalServerError)
		return
	}

	chunks, err := s.ingester.IngestFile(r.Context(), dst)
	if err != nil {
		log.Error("upload: ingestion failed", slog.String("path", dst), slog.Any("error", err))
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusUnprocessableEntity)
		return
	}

	log.Info("document ingested",
		slog.String("file", name),
		slog.Int("chunks", chunks),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(uploadResponse{File: name, Chunks: chunks})
}

// sanitizeFilename reduces an uploaded filename to its base name and rejects
// names that could escape the corpus directory.
func sanitizeFilename(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename")
	}
	if strings.ContainsAny(base, "\x00") {
		return "", fmt.Errorf("invalid filename")
	}
	return base, nil
}
