package refine

import (
	"testing"

	"github.com/driftlynx/answerengine/internal/engine"
)

func TestFlashRefineMarksHighConfidence(t *testing.T) {
	pages := []engine.FetchedPage{
		{URL: "https://example.com/a", Content: "golang concurrency goroutines channels select statement"},
	}
	f := NewFlash(nil)
	evidence := f.Refine("golang concurrency goroutines channels select statement", pages, 500, 0, 5)
	if len(evidence) == 0 {
		t.Fatal("expected evidence")
	}
	if !evidence[0].IsAnswer {
		t.Errorf("expected exact keyword match to cross high-confidence threshold, score=%v", evidence[0].RelevanceScore)
	}
}

func TestFlashRefineRespectsMaxEvidence(t *testing.T) {
	pages := []engine.FetchedPage{
		{URL: "https://example.com/a", Content: "one two three four five six seven eight nine ten\n\neleven twelve thirteen fourteen"},
	}
	f := NewFlash(nil)
	evidence := f.Refine("one two three", pages, 20, 0, 1)
	if len(evidence) != 1 {
		t.Errorf("expected maxEvidence=1 to cap results, got %d", len(evidence))
	}
}
