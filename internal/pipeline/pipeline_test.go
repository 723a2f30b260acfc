package pipeline

import (
	"context"
	"testing"

	"github.com/driftlynx/answerengine/internal/config"
	"github.com/driftlynx/answerengine/internal/engine"
	"github.com/driftlynx/answerengine/internal/guard"
	"github.com/driftlynx/answerengine/internal/planner"
	"github.com/driftlynx/answerengine/internal/providers"
	"github.com/driftlynx/answerengine/internal/refine"
)

type stubProvider struct {
	results []engine.SearchResult
}

func (s *stubProvider) Name() string { return "stub" }
func (s *stubProvider) Search(ctx context.Context, query, language, timeRange string) ([]engine.SearchResult, error) {
	return s.results, nil
}

type stubReader struct {
	content string
	err     error
}

func (s *stubReader) Name() string { return "stub-reader" }
func (s *stubReader) Read(ctx context.Context, rawURL string) (engine.FetchedPage, error) {
	if s.err != nil {
		return engine.FetchedPage{URL: rawURL, Err: s.err}, s.err
	}
	return engine.FetchedPage{URL: rawURL, Content: s.content, ContentType: "html"}, nil
}

func newTestPipeline(cfg config.Config, reader *stubReader, results []engine.SearchResult) *Pipeline {
	return &Pipeline{
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
}

func TestPipelineRunReturnsEvidenceFromFetchedPages(t *testing.T) {
	cfg := config.Build(config.ModeBalanced, config.Overrides{})
	cfg.ReaderMaxPages = 5
	results := []engine.SearchResult{
		{Title: "Go", URL: "https://example.com/go", Snippet: "Go concurrency basics"},
	}
	longContent := "Go is a statically typed, compiled programming language designed at Google. " +
		"It has first-class support for concurrency through goroutines and channels, letting programs " +
		"coordinate many lightweight threads of execution without the overhead of OS threads. " +
		"The runtime schedules goroutines cooperatively across a small pool of OS threads, and channels " +
		"provide synchronized communication between them without explicit locks in most common cases."
	reader := &stubReader{content: longContent}
	p := newTestPipeline(cfg, reader, results)

	out := p.Run(context.Background(), "go concurrency", Context{})
	if out.Trace["error"] != nil {
		t.Fatalf("unexpected pipeline error: %v", out.Trace["error"])
	}
	if len(out.Pages) != 1 {
		t.Fatalf("expected 1 fetched page, got %d", len(out.Pages))
	}
	if len(out.Evidence) == 0 {
		t.Error("expected some evidence to be produced")
	}
}

func TestPipelineRunTurboModeSkipsFetch(t *testing.T) {
	cfg := config.Build(config.ModeTurbo, config.Overrides{})
	results := []engine.SearchResult{
		{Title: "Go", URL: "https://example.com/go", Snippet: "Go is a programming language designed at Google with concurrency support."},
	}
	reader := &stubReader{content: "should not be used"}
	p := newTestPipeline(cfg, reader, results)

	out := p.Run(context.Background(), "go concurrency", Context{})
	if len(out.Pages) != 1 {
		t.Fatalf("expected 1 virtual page, got %d", len(out.Pages))
	}
	if out.Pages[0].ReaderUsed != "virtual" {
		t.Errorf("expected virtual page in turbo mode, got reader %q", out.Pages[0].ReaderUsed)
	}
}

func TestPipelineRunSnippetFallbackOnFailedFetch(t *testing.T) {
	cfg := config.Build(config.ModeBalanced, config.Overrides{})
	cfg.EnableSnippetFallback = true
	results := []engine.SearchResult{
		{Title: "Go", URL: "https://example.com/go", Snippet: "Go is a statically typed programming language from Google."},
	}
	reader := &stubReader{content: ""} // empty content triggers the failed-page path
	p := newTestPipeline(cfg, reader, results)

	out := p.Run(context.Background(), "go language", Context{})
	if len(out.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(out.Pages))
	}
	if out.Pages[0].Content != results[0].Snippet {
		t.Errorf("expected snippet fallback content, got %q", out.Pages[0].Content)
	}
	if out.Pages[0].Err != nil {
		t.Error("expected snippet fallback to clear the error")
	}
}

func TestPipelineRunBlocksDisallowedDomain(t *testing.T) {
	cfg := config.Build(config.ModeBalanced, config.Overrides{
		Security: config.SecurityConfig{BlockedDomains: []string{"example.com"}},
	})
	results := []engine.SearchResult{
		{Title: "Go", URL: "https://example.com/go", Snippet: "snippet"},
	}
	reader := &stubReader{content: "irrelevant"}
	p := newTestPipeline(cfg, reader, results)

	out := p.Run(context.Background(), "go", Context{})
	if len(out.Pages) != 0 {
		t.Errorf("expected blocked URL to produce no pages, got %d", len(out.Pages))
	}
	if len(out.BlockedDomains) == 0 {
		t.Error("expected blocked domain to be recorded")
	}
}
