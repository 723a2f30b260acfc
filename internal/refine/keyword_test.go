package refine

import "testing"

func TestKeywordScoreRanksMoreRelevantHigher(t *testing.T) {
	chunks := []Chunk{
		{ID: "1", URL: "https://a.example", Content: "golang concurrency patterns with goroutines and channels"},
		{ID: "2", URL: "https://b.example", Content: "a recipe for chocolate cake with frosting"},
	}
	k := NewKeyword(0)
	scored := k.Score("golang goroutines channels", chunks)
	if len(scored) != 2 {
		t.Fatalf("expected 2 scored chunks, got %d", len(scored))
	}
	if scored[0].ChunkID != "1" {
		t.Errorf("expected chunk 1 ranked first, got %q", scored[0].ChunkID)
	}
	if scored[0].RelevanceScore <= scored[1].RelevanceScore {
		t.Errorf("expected chunk 1 to outscore chunk 2")
	}
}

func TestKeywordScoreFiltersBelowMinRelevance(t *testing.T) {
	chunks := []Chunk{
		{ID: "1", URL: "https://a.example", Content: "completely unrelated text about gardening"},
	}
	k := NewKeyword(0.5)
	scored := k.Score("golang concurrency", chunks)
	if len(scored) != 0 {
		t.Errorf("expected no chunks above min relevance, got %d", len(scored))
	}
}

func TestKeywordScoreEmptyInputs(t *testing.T) {
	if got := (NewKeyword(0)).Score("", []Chunk{{ID: "1", Content: "x"}}); got != nil {
		t.Error("expected nil for empty query")
	}
	if got := (NewKeyword(0)).Score("query", nil); got != nil {
		t.Error("expected nil for no chunks")
	}
}

func TestKeywordScoreStopWordOnlyQueryReturnsEmpty(t *testing.T) {
	chunks := []Chunk{{ID: "1", Content: "golang concurrency patterns"}}
	scored := (NewKeyword(0)).Score("the a of and", chunks)
	if scored != nil {
		t.Errorf("expected nil for an all-stop-word query, got %d chunks", len(scored))
	}
}

func TestTokenizeDropsStopWordsAndShortTokens(t *testing.T) {
	got := tokenize("The a goroutines and channels in Go")
	want := map[string]bool{"goroutines": true, "channels": true, "go": true}
	if len(got) != len(want) {
		t.Fatalf("tokenize() = %v, want tokens matching %v", got, want)
	}
	for _, tok := range got {
		if !want[tok] {
			t.Errorf("unexpected token %q survived stop-word/length filtering", tok)
		}
	}
}

func TestKeywordScoreTopChunkNormalizesToCorpusMax(t *testing.T) {
	chunks := []Chunk{
		{ID: "1", URL: "https://a.example", Content: "golang goroutines channels concurrency patterns golang goroutines"},
		{ID: "2", URL: "https://b.example", Content: "golang mentioned once"},
	}
	k := NewKeyword(0)
	scored := k.Score("golang goroutines channels", chunks)
	if len(scored) == 0 {
		t.Fatal("expected at least one scored chunk")
	}
	if scored[0].RelevanceScore != 1.0 {
		t.Errorf("expected top chunk to normalize to 1.0 against the corpus max, got %v", scored[0].RelevanceScore)
	}
}
