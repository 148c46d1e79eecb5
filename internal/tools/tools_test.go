package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/raqdev/docq-go/internal/rag"
	"github.com/raqdev/docq-go/internal/websearch"
)

type fakeRetriever struct {
	docs []rag.Document
	err  error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, topK int) ([]rag.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

type fakeWebClient struct {
	results []websearch.Result
	err     error
}

func (f *fakeWebClient) Search(ctx context.Context, query string, maxResults int) ([]websearch.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeWebClient) Name() string { return "fake" }

func TestDocSearchTool_InvokableRun(t *testing.T) {
	t.Parallel()

	tool := NewDocSearchTool(&fakeRetriever{docs: []rag.Document{
		{ID: "c1", Content: "vacation accrues monthly", Source: "hr/policy.md", Score: 0.88},
	}}, 5)

	out, err := tool.InvokableRun(context.Background(), `{"query":"vacation policy"}`)
	if err != nil {
		t.Fatalf("InvokableRun() failed: %v", err)
	}
	if !strings.Contains(out, "hr/policy.md") || !strings.Contains(out, "vacation accrues monthly") {
		t.Errorf("output missing passage details:\n%s", out)
	}
}

func TestDocSearchTool_EmptyCorpus(t *testing.T) {
	t.Parallel()

	tool := NewDocSearchTool(&fakeRetriever{}, 5)
	out, err := tool.InvokableRun(context.Background(), `{"query":"anything"}`)
	if err != nil {
		t.Fatalf("InvokableRun() failed: %v", err)
	}
	if !strings.Contains(out, "No matching passages") {
		t.Errorf("output = %q, want empty-corpus message", out)
	}
}

func TestDocSearchTool_RejectsBadInput(t *testing.T) {
	t.Parallel()

	tool := NewDocSearchTool(&fakeRetriever{}, 5)
	if _, err := tool.InvokableRun(context.Background(), `{"query":""}`); err == nil {
		t.Error("empty query accepted, want error")
	}
	if _, err := tool.InvokableRun(context.Background(), `not json`); err == nil {
		t.Error("malformed JSON accepted, want error")
	}
}

func TestDocSearchTool_Info(t *testing.T) {
	t.Parallel()

	tool := NewDocSearchTool(&fakeRetriever{}, 5)
	info, err := tool.Info(context.Background())
	if err != nil {
		t.Fatalf("Info() failed: %v", err)
	}
	if info.Name != "document_search" {
		t.Errorf("Name = %q, want document_search", info.Name)
	}
}

func TestWebSearchTool_InvokableRun(t *testing.T) {
	t.Parallel()

	tool := NewWebSearchTool(&fakeWebClient{results: []websearch.Result{
		{URL: "https://example.com", Title: "Example", Snippet: "useful info", Rank: 1},
	}}, 5)

	out, err := tool.InvokableRun(context.Background(), `{"query":"useful info"}`)
	if err != nil {
		t.Fatalf("InvokableRun() failed: %v", err)
	}
	if !strings.Contains(out, "https://example.com") || !strings.Contains(out, "useful info") {
		t.Errorf("output missing result details:\n%s", out)
	}
}

func TestWebSearchTool_SearchError(t *testing.T) {
	t.Parallel()

	tool := NewWebSearchTool(&fakeWebClient{err: errors.New("quota exceeded")}, 5)
	if _, err := tool.InvokableRun(context.Background(), `{"query":"q"}`); err == nil {
		t.Fatal("expected error, got nil")
	}
}
