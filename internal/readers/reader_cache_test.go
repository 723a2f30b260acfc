package readers

import (
	"context"
	"testing"
	"time"

	"github.com/driftlynx/answerengine/internal/engine"
)

func TestCacheStoreThenLookupRoundTrips(t *testing.T) {
	engine.InitCache("", time.Minute, 100, 5*time.Minute)
	ctx := context.Background()

	if _, ok := cacheLookup(ctx, "html", "https://example.com/warm"); ok {
		t.Fatal("expected cache miss before store")
	}

	cacheStore(ctx, "html", "https://example.com/warm", "Title", "Body content")

	page, ok := cacheLookup(ctx, "html", "https://example.com/warm")
	if !ok {
		t.Fatal("expected cache hit after store")
	}
	if page.Title != "Title" || page.Content != "Body content" {
		t.Errorf("got title=%q content=%q, want Title/Body content", page.Title, page.Content)
	}
	if page.URL != "https://example.com/warm" {
		t.Errorf("unexpected URL %q", page.URL)
	}
}

func TestCacheLookupDistinguishesReaderKind(t *testing.T) {
	engine.InitCache("", time.Minute, 100, 5*time.Minute)
	ctx := context.Background()

	cacheStore(ctx, "html", "https://example.com/same", "HTML title", "html content")

	if _, ok := cacheLookup(ctx, "pdf", "https://example.com/same"); ok {
		t.Error("expected pdf cache to miss on a key stored under html")
	}
}
