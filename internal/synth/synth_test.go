package synth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/driftlynx/answerengine/internal/engine"
)

func TestSynthesizeUnconfigured(t *testing.T) {
	s := New("", "", "", 2000, 5, engine.DefaultRetryPolicy)
	got := s.Synthesize(context.Background(), "q", []engine.EvidenceChunk{{URL: "https://a.example", Content: "x"}})
	if got != "LLM not configured. Unable to synthesize answer." {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestSynthesizeNoEvidence(t *testing.T) {
	s := New("http://example.invalid", "", "model", 2000, 5, engine.DefaultRetryPolicy)
	got := s.Synthesize(context.Background(), "q", nil)
	if got != "No evidence found to answer the query." {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestSynthesizeReturnsAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{}
		resp.Choices = []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}{{}}
		resp.Choices[0].Message.Content = "Go was designed at Google [1]."
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	s := New(srv.URL, "", "model", 2000, 5, engine.DefaultRetryPolicy)
	evidence := []engine.EvidenceChunk{{URL: "https://wikipedia.org/wiki/Go", Content: "Go is a language designed at Google."}}
	got := s.Synthesize(context.Background(), "who designed go", evidence)
	if !strings.Contains(got, "[1]") {
		t.Errorf("expected citation in answer, got %q", got)
	}
}

func TestBuildContextTruncatesOverflowingFirstChunk(t *testing.T) {
	huge := strings.Repeat("word ", 10000)
	evidence := []engine.EvidenceChunk{{URL: "https://a.example", Content: huge}}
	out := buildContext(evidence, 1000, 5)
	if !strings.Contains(out, "(truncated)") {
		t.Error("expected first oversized chunk to be truncated rather than dropped")
	}
}

func TestBuildContextRespectsMaxEvidence(t *testing.T) {
	evidence := []engine.EvidenceChunk{
		{URL: "https://a.example", Content: "alpha"},
		{URL: "https://b.example", Content: "beta"},
		{URL: "https://c.example", Content: "gamma"},
	}
	out := buildContext(evidence, 2000, 1)
	if strings.Contains(out, "beta") || strings.Contains(out, "gamma") {
		t.Error("expected only the first chunk when maxEvidence=1")
	}
}
