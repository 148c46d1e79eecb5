package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Runner is the interface for executing the pdftotext CLI. Abstracting this
// allows tests to inject a fake runner without spawning real processes.
type Runner interface {
	// Run executes pdftotext on the given PDF path and returns its stdout.
	Run(ctx context.Context, path string) (string, error)
}

// ExecRunner implements Runner by executing the real pdftotext binary found
// on PATH (part of poppler-utils). It is the default runner in production.
type ExecRunner struct{}

// NewExecRunner returns a new ExecRunner. It verifies that the pdftotext
// binary is available on PATH at construction time.
func NewExecRunner() (*ExecRunner, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("extract: pdftotext binary not found on PATH — install poppler-utils first")
	}
	return &ExecRunner{}, nil
}

// Run executes `pdftotext -layout <path> -` and returns the captured stdout.
// The trailing "-" sends extracted text to stdout instead of a file.
func (r *ExecRunner) Run(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("extract: pdftotext exited %d: %s", exitErr.ExitCode(), stderr.String())
		}
		return "", fmt.Errorf("extract: failed to run pdftotext: %w", err)
	}

	return stdout.String(), nil
}

// PDFExtractor extracts text from PDF files via a Runner.
type PDFExtractor struct {
	runner Runner
}

// NewPDFExtractor returns an extractor that delegates to the given runner.
func NewPDFExtractor(runner Runner) *PDFExtractor {
	return &PDFExtractor{runner: runner}
}

// Supports reports whether ext is a PDF.
func (e *PDFExtractor) Supports(ext string) bool {
	return ext == ".pdf"
}

// Extract runs pdftotext on the file and returns the extracted text.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	text, err := e.runner.Run(ctx, path)
	if err != nil {
		return "", err
	}
	return text, nil
}
