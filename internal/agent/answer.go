package agent

import (
	"fmt"
	"strings"

	"github.com/raqdev/docq-go/internal/budget"
	"github.com/raqdev/docq-go/internal/rag"
	"github.com/raqdev/docq-go/internal/router"
)

// Citation identifies one numbered evidence source shown to the LLM.
type Citation struct {
	// Index is the 1-based [n] marker used in the evidence block.
	Index int `json:"index"`

	// Source is the corpus file path or web URL.
	Source string `json:"source"`

	// Title is the human-readable label (document title or page title).
	Title string `json:"title,omitempty"`

	// Origin is "corpus" or "web".
	Origin string `json:"origin"`
}

// BuildCitations numbers the decision's evidence: local chunks first, then
// web results, matching the order FormatEvidence presents them in. Chunks
// from the same source share one citation.
func BuildCitations(decision *router.Decision) []Citation {
	if decision == nil {
		return nil
	}

	var citations []Citation
	seen := make(map[string]bool)

	for _, chunk := range decision.Chunks {
		if seen[chunk.Source] {
			continue
		}
		seen[chunk.Source] = true
		citations = append(citations, Citation{
			Index:  len(citations) + 1,
			Source: chunk.Source,
			Title:  chunk.Metadata["title"],
			Origin: "corpus",
		})
	}

	for _, res := range decision.WebResults {
		if seen[res.URL] {
			continue
		}
		seen[res.URL] = true
		citations = append(citations, Citation{
			Index:  len(citations) + 1,
			Source: res.URL,
			Title:  res.Title,
			Origin: "web",
		})
	}

	return citations
}

// FormatEvidence renders the decision's evidence into the system message the
// LLM grounds its answer on. Local chunks always precede web results, and
// each entry carries the [n] marker matching its citation. When the combined
// evidence exceeds maxTokens, entries are dropped lowest-rank first (web
// tail before corpus tail) without reordering.
func FormatEvidence(decision *router.Decision, citations []Citation, maxTokens int) string {
	if decision == nil || (len(decision.Chunks) == 0 && len(decision.WebResults) == 0) {
		return ""
	}

	indexBySource := make(map[string]int, len(citations))
	for _, c := range citations {
		indexBySource[c.Source] = c.Index
	}

	// Flatten to documents so the token trim treats corpus and web evidence
	// uniformly while preserving the corpus-first ordering.
	docs := make([]rag.Document, 0, len(decision.Chunks)+len(decision.WebResults))
	docs = append(docs, decision.Chunks...)
	for _, res := range decision.WebResults {
		docs = append(docs, rag.Document{
			Content: res.Snippet,
			Source:  res.URL,
			Metadata: map[string]string{
				"title":  res.Title,
				"origin": "web",
			},
		})
	}
	docs = budget.TrimEvidence(docs, maxTokens)
	if len(docs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Evidence\n\n")
	if decision.Kind == router.FallbackRequired {
		b.WriteString("The document corpus did not fully answer this query; " +
			"web search results are appended after the corpus passages.\n\n")
	}

	for _, doc := range docs {
		idx := indexBySource[doc.Source]
		if doc.Metadata["origin"] == "web" {
			fmt.Fprintf(&b, "[%d] web: %s (%s)\n%s\n\n", idx, doc.Metadata["title"], doc.Source, doc.Content)
			continue
		}
		fmt.Fprintf(&b, "[%d] corpus: %s (score %.2f)\n%s\n\n", idx, doc.Source, doc.Score, doc.Content)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// IsNotFound reports whether the answer is the canonical "no information"
// reply, so callers can distinguish a miss from a grounded answer.
func IsNotFound(answer string) bool {
	return strings.Contains(answer, notFoundReply)
}
