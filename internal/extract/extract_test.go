package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// fakeRunner returns canned text without spawning pdftotext.
type fakeRunner struct {
	text string
	err  error
}

func (f *fakeRunner) Run(ctx context.Context, path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func TestTextExtractor_Extract(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(path, []byte("# Heading\n\nbody text"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	e := NewTextExtractor()
	text, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if text != "# Heading\n\nbody text" {
		t.Errorf("Extract() = %q", text)
	}
}

func TestTextExtractor_Supports(t *testing.T) {
	t.Parallel()

	e := NewTextExtractor()
	for _, ext := range []string{".txt", ".md", ".markdown", ".rst"} {
		if !e.Supports(ext) {
			t.Errorf("Supports(%q) = false, want true", ext)
		}
	}
	for _, ext := range []string{".pdf", ".docx", ".png", ""} {
		if e.Supports(ext) {
			t.Errorf("Supports(%q) = true, want false", ext)
		}
	}
}

func TestPDFExtractor_Extract(t *testing.T) {
	t.Parallel()

	e := NewPDFExtractor(&fakeRunner{text: "page one text"})
	text, err := e.Extract(context.Background(), "report.pdf")
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if text != "page one text" {
		t.Errorf("Extract() = %q", text)
	}
}

func TestPDFExtractor_ExtractError(t *testing.T) {
	t.Parallel()

	e := NewPDFExtractor(&fakeRunner{err: fmt.Errorf("corrupt file")})
	if _, err := e.Extract(context.Background(), "bad.pdf"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestRegistry_DispatchesByExtension(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(NewTextExtractor(), NewPDFExtractor(&fakeRunner{text: "pdf body"}))

	if _, err := reg.For("doc.md"); err != nil {
		t.Errorf("For(doc.md) failed: %v", err)
	}
	if _, err := reg.For("doc.PDF"); err != nil {
		t.Errorf("For(doc.PDF) failed: %v (extension match must be case-insensitive)", err)
	}
	if _, err := reg.For("doc.docx"); err == nil {
		t.Error("For(doc.docx) succeeded, want unsupported-type error")
	}

	text, err := reg.Extract(context.Background(), "report.pdf")
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if text != "pdf body" {
		t.Errorf("Extract() = %q", text)
	}
}
