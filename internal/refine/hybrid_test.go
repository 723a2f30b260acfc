package refine

import (
	"strings"
	"testing"

	"github.com/driftlynx/answerengine/internal/engine"
)

func TestHybridRefineReturnsRankedDiverseEvidence(t *testing.T) {
	pages := []engine.FetchedPage{
		{URL: "https://wikipedia.org/wiki/Go", Title: "Go", Content: "Go is a statically typed, compiled programming language designed at Google."},
		{URL: "https://best-deals-blog.com/go", Title: "Go deals", Content: "Go is a statically typed, compiled programming language designed at Google."},
		{URL: "https://example.com/unrelated", Content: "A recipe for chocolate cake with layers of frosting."},
	}

	h := NewHybrid(0, nil)
	evidence := h.Refine("statically typed programming language Google", pages, 500, 50)
	if len(evidence) == 0 {
		t.Fatal("expected some evidence chunks")
	}

	// The wikipedia source should outrank the low-authority duplicate content source.
	var wikiScore, spamScore float64
	for _, e := range evidence {
		if strings.Contains(e.URL, "wikipedia.org") {
			wikiScore = e.RelevanceScore
		}
		if strings.Contains(e.URL, "best-deals-blog.com") {
			spamScore = e.RelevanceScore
		}
	}
	if wikiScore <= spamScore {
		t.Errorf("expected wikipedia source to outrank low-authority duplicate, wiki=%v spam=%v", wikiScore, spamScore)
	}
}

func TestHybridRefineEmptyPages(t *testing.T) {
	h := NewHybrid(0, nil)
	if got := h.Refine("query", nil, 500, 50); got != nil {
		t.Error("expected nil evidence for no pages")
	}
}

func TestMMRSelectCapsPerSource(t *testing.T) {
	ranked := []engine.EvidenceChunk{
		{ChunkID: "1", URL: "https://a.example/1", Content: "alpha beta gamma", RelevanceScore: 0.9},
		{ChunkID: "2", URL: "https://a.example/2", Content: "alpha beta delta", RelevanceScore: 0.85},
		{ChunkID: "3", URL: "https://a.example/3", Content: "alpha beta epsilon", RelevanceScore: 0.8},
		{ChunkID: "4", URL: "https://a.example/4", Content: "alpha beta zeta", RelevanceScore: 0.75},
		{ChunkID: "5", URL: "https://b.example/1", Content: "completely different content here", RelevanceScore: 0.5},
	}
	selected := mmrSelect(ranked, 0.7, 3, 10)

	countA := 0
	for _, s := range selected {
		if strings.Contains(s.URL, "a.example") {
			countA++
		}
	}
	if countA > 3 {
		t.Errorf("expected at most 3 chunks from a.example, got %d", countA)
	}
}
