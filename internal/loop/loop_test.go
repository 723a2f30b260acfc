package loop

import (
	"context"
	"testing"

	"github.com/driftlynx/answerengine/internal/config"
	"github.com/driftlynx/answerengine/internal/engine"
	"github.com/driftlynx/answerengine/internal/guard"
	"github.com/driftlynx/answerengine/internal/pipeline"
	"github.com/driftlynx/answerengine/internal/planner"
	"github.com/driftlynx/answerengine/internal/providers"
	"github.com/driftlynx/answerengine/internal/refine"
	"github.com/driftlynx/answerengine/internal/synth"
)

type stubProvider struct{ results []engine.SearchResult }

func (s *stubProvider) Name() string { return "stub" }
func (s *stubProvider) Search(ctx context.Context, query, language, timeRange string) ([]engine.SearchResult, error) {
	return s.results, nil
}

type stubReader struct{ content string }

func (s *stubReader) Name() string { return "stub-reader" }
func (s *stubReader) Read(ctx context.Context, rawURL string) (engine.FetchedPage, error) {
	return engine.FetchedPage{URL: rawURL, Content: s.content}, nil
}

func TestSufficientRequiresThreeAboveThreshold(t *testing.T) {
	evidence := []engine.EvidenceChunk{
		{RelevanceScore: 0.5}, {RelevanceScore: 0.6}, {RelevanceScore: 0.1},
	}
	if sufficient(evidence) {
		t.Error("expected insufficient with only 2 chunks above threshold")
	}
	evidence = append(evidence, engine.EvidenceChunk{RelevanceScore: 0.9})
	if !sufficient(evidence) {
		t.Error("expected sufficient with 3 chunks above threshold")
	}
}

func TestLoopRunReturnsAnswerAndRequestID(t *testing.T) {
	cfg := config.Build(config.ModeBalanced, config.Overrides{})
	cfg.MinRelevance = 0
	results := []engine.SearchResult{
		{Title: "Go", URL: "https://wikipedia.org/wiki/Go", Snippet: "Go programming language"},
	}
	content := "Go is a statically typed, compiled programming language designed at Google. " +
		"It has first-class concurrency support via goroutines and channels for coordinating work " +
		"across many lightweight threads without heavy OS thread overhead in typical server workloads."
	reader := &stubReader{content: content}

	p := &pipeline.Pipeline{
		Cfg:     cfg,
		Planner: planner.New("", "", "", engine.DefaultRetryPolicy),
		Search:  providers.NewComposite(&stubProvider{results: results}),
		Guard:   guard.New(cfg.Security),
		HTML:    reader,
		PDF:     reader,
		Keyword: refine.NewKeyword(0),
		Hybrid:  refine.NewHybrid(0, nil),
		Flash:   refine.NewFlash(nil),
	}
	s := synth.New("", "", "", cfg.MaxContextTokens, cfg.MaxEvidence, engine.DefaultRetryPolicy)
	l := New(p, s, 2)

	out := l.Run(context.Background(), "go programming language concurrency")
	if out.Answer != "LLM not configured. Unable to synthesize answer." && out.Answer != "No evidence found to answer the query." {
		t.Errorf("unexpected answer: %q", out.Answer)
	}
	if out.Rounds < 1 {
		t.Error("expected at least one round to run")
	}
	if out.RequestID == "" {
		t.Error("expected a non-empty request ID")
	}
	if out.Trace["request_id"] != out.RequestID {
		t.Errorf("expected trace request_id to match AnswerOutput.RequestID")
	}
}

func TestRunGeneratesDistinctRequestIDsAcrossCalls(t *testing.T) {
	p := &pipeline.Pipeline{}
	s := synth.New("", "", "", 0, 0, engine.DefaultRetryPolicy)
	l := New(p, s, 1)

	first := l.Run(context.Background(), "q")
	second := l.Run(context.Background(), "q")
	if first.RequestID == second.RequestID {
		t.Errorf("expected distinct request IDs across runs, got %q twice", first.RequestID)
	}
}
