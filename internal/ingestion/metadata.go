package ingestion

import (
	"path/filepath"
	"strings"
)

// InferredMetadata holds the title, doc type, and collection inferred from a
// file's path. CLI flags take precedence over inferred values — this is the
// best-effort fallback when the user doesn't specify explicit metadata.
type InferredMetadata struct {
	// Title is a human-readable title derived from the file name.
	Title string
	// DocType classifies the document kind (pdf, markdown, text).
	DocType string
	// Collection is the logical corpus grouping, taken from the parent
	// directory name ("" for files at the root).
	Collection string
}

// docTypeByExtension maps file extensions to canonical doc type labels.
var docTypeByExtension = map[string]string{
	".pdf":      "pdf",
	".md":       "markdown",
	".markdown": "markdown",
	".rst":      "text",
	".txt":      "text",
}

// InferMetadata inspects the document file path and returns best-effort
// metadata. The title is the base name with the extension stripped and
// separators ("-", "_") replaced by spaces; the collection is the immediate
// parent directory name.
func InferMetadata(path string) InferredMetadata {
	m := InferredMetadata{DocType: "text"}

	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	if dt, ok := docTypeByExtension[ext]; ok {
		m.DocType = dt
	}

	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	m.Title = strings.TrimSpace(name)

	dir := filepath.Base(filepath.Dir(path))
	if dir != "." && dir != string(filepath.Separator) && dir != "" {
		m.Collection = dir
	}

	return m
}
