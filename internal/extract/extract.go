// Package extract converts source documents into plain text ready for
// chunking. Plain text and markdown are read natively; PDF extraction shells
// out to the pdftotext binary behind a Runner interface so tests can inject
// a fake without spawning processes.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor converts one file into plain text.
type Extractor interface {
	// Extract returns the text content of the file at path.
	Extract(ctx context.Context, path string) (string, error)

	// Supports reports whether this extractor handles the given file
	// extension (lowercase, with leading dot).
	Supports(ext string) bool
}

// TextExtractor reads plain-text formats (txt, md) directly from disk.
type TextExtractor struct{}

// NewTextExtractor returns an extractor for plain-text formats.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Supports reports whether ext is a plain-text format.
func (e *TextExtractor) Supports(ext string) bool {
	switch ext {
	case ".txt", ".md", ".markdown", ".rst":
		return true
	}
	return false
}

// Extract reads the file contents verbatim.
func (e *TextExtractor) Extract(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("extract: read %s: %w", path, err)
	}
	return string(data), nil
}

// Registry dispatches to the first extractor that supports a file's extension.
type Registry struct {
	extractors []Extractor
}

// NewRegistry builds a Registry from the given extractors, consulted in order.
func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// For returns the extractor responsible for the given path, or an error when
// no extractor supports its extension.
func (r *Registry) For(path string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range r.extractors {
		if e.Supports(ext) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("extract: unsupported file type %q (%s)", ext, path)
}

// Extract converts the file at path using the matching extractor.
func (r *Registry) Extract(ctx context.Context, path string) (string, error) {
	e, err := r.For(path)
	if err != nil {
		return "", err
	}
	return e.Extract(ctx, path)
}
