package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/driftlynx/answerengine/internal/engine"
)

type stubProvider struct {
	name    string
	results []engine.SearchResult
	err     error
	calls   int
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Search(ctx context.Context, query, language, timeRange string) ([]engine.SearchResult, error) {
	s.calls++
	return s.results, s.err
}

func TestCompositeFailsOverToSecondaryOnEmptyPrimary(t *testing.T) {
	primary := &stubProvider{name: "primary"}
	secondary := &stubProvider{name: "secondary", results: []engine.SearchResult{{Title: "Hit", URL: "http://a.com", Snippet: "x"}}}
	c := NewComposite(primary, secondary)

	got, err := c.Search(context.Background(), "q", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].URL != "http://a.com" {
		t.Errorf("expected secondary's result, got %v", got)
	}
}

func TestCompositeFailsOverOnPrimaryError(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("boom")}
	secondary := &stubProvider{name: "secondary", results: []engine.SearchResult{{Title: "Hit", URL: "http://a.com"}}}
	c := NewComposite(primary, secondary)

	got, err := c.Search(context.Background(), "q", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected failover result, got %v", got)
	}
}

func TestCompositeReturnsPrimaryWithoutCallingSecondary(t *testing.T) {
	primary := &stubProvider{name: "primary", results: []engine.SearchResult{{Title: "P", URL: "http://p.com"}}}
	secondary := &stubProvider{name: "secondary"}
	c := NewComposite(primary, secondary)

	got, _ := c.Search(context.Background(), "q", "", "")
	if len(got) != 1 || got[0].URL != "http://p.com" {
		t.Errorf("expected primary's result returned immediately, got %v", got)
	}
	if secondary.calls != 0 {
		t.Errorf("expected secondary not to be called, got %d calls", secondary.calls)
	}
}

func TestCompositeErrorsOnNoProviders(t *testing.T) {
	c := NewComposite()
	_, err := c.Search(context.Background(), "q", "", "")
	if err == nil {
		t.Error("expected configuration error for empty provider list")
	}
}

func TestFilterByScore(t *testing.T) {
	results := []engine.SearchResult{
		{Title: "a", Score: 10.0},
		{Title: "b", Score: 5.0},
		{Title: "c", Score: 1.0},
		{Title: "d", Score: 0.5},
		{Title: "e", Score: 0.1},
	}

	t.Run("filters below threshold", func(t *testing.T) {
		got := FilterByScore(results, 3.0, 1)
		if len(got) != 2 {
			t.Errorf("expected 2 results, got %d", len(got))
		}
	})

	t.Run("respects minKeep", func(t *testing.T) {
		got := FilterByScore(results, 100.0, 3)
		if len(got) != 3 {
			t.Errorf("expected 3 results (minKeep), got %d", len(got))
		}
	})

	t.Run("returns all when fewer than minKeep", func(t *testing.T) {
		small := results[:2]
		got := FilterByScore(small, 100.0, 5)
		if len(got) != 2 {
			t.Errorf("expected 2 results (all available), got %d", len(got))
		}
	})

	t.Run("no filter when threshold is 0", func(t *testing.T) {
		got := FilterByScore(results, 0, 1)
		if len(got) != 5 {
			t.Errorf("expected all 5 results, got %d", len(got))
		}
	})
}

func TestDedupByDomain(t *testing.T) {
	results := []engine.SearchResult{
		{Title: "a1", URL: "https://example.com/1"},
		{Title: "a2", URL: "https://example.com/2"},
		{Title: "a3", URL: "https://example.com/3"},
		{Title: "b1", URL: "https://other.com/1"},
		{Title: "b2", URL: "https://other.com/2"},
	}

	t.Run("limits per domain", func(t *testing.T) {
		got := DedupByDomain(results, 2)
		if len(got) != 4 {
			t.Errorf("expected 4 results, got %d", len(got))
		}
	})

	t.Run("max 1 per domain", func(t *testing.T) {
		got := DedupByDomain(results, 1)
		if len(got) != 2 {
			t.Errorf("expected 2 results, got %d", len(got))
		}
	})

	t.Run("skips invalid URLs", func(t *testing.T) {
		bad := []engine.SearchResult{{Title: "bad", URL: "://invalid"}}
		got := DedupByDomain(bad, 5)
		if len(got) != 0 {
			t.Errorf("expected 0 results for invalid URL, got %d", len(got))
		}
	})
}

func TestDedupByURL(t *testing.T) {
	results := []engine.SearchResult{
		{Title: "first", URL: "https://example.com/a"},
		{Title: "dup", URL: "https://example.com/a"},
		{Title: "second", URL: "https://example.com/b"},
	}
	got := DedupByURL(results)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Title != "first" {
		t.Errorf("expected first occurrence kept, got %q", got[0].Title)
	}
}
