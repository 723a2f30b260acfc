// Package readers turns a URL into page content. Each Reader implements a
// different retrieval strategy — static HTML extraction, PDF text
// extraction, or full headless-browser rendering — and the pipeline picks
// one per URL based on its suffix and escalates to the browser reader when
// a cheaper reader's output looks broken.
package readers

import (
	"context"
	"time"

	"github.com/driftlynx/answerengine/internal/engine"
)

// Reader fetches and extracts text content from a single URL.
type Reader interface {
	Name() string
	Read(ctx context.Context, rawURL string) (engine.FetchedPage, error)
}

// cachedExtraction is the serializable subset of a FetchedPage worth
// caching: title and content. Errored pages are never cached, and
// FetchedAt is always stamped fresh on a hit, matching spec.md's
// round-trip invariant that a warm cache reproduces identical content
// with a fresh timestamp, not a frozen one.
type cachedExtraction struct {
	Title   string
	Content string
}

// cacheLookup returns a cached FetchedPage for a reader's successful
// extraction of rawURL, keyed by a hash of the URL under kind (so the
// html, pdf, and browser readers never collide on the same URL).
func cacheLookup(ctx context.Context, kind, rawURL string) (engine.FetchedPage, bool) {
	cached, ok := engine.CacheLoadJSON[cachedExtraction](ctx, engine.CacheKey(kind, rawURL))
	if !ok {
		return engine.FetchedPage{}, false
	}
	return engine.FetchedPage{
		URL:         rawURL,
		Title:       cached.Title,
		Content:     cached.Content,
		ContentType: kind,
		ReaderUsed:  kind,
		FetchedAt:   time.Now(),
	}, true
}

// cacheStore saves a successful extraction's title and content under kind.
func cacheStore(ctx context.Context, kind, rawURL, title, content string) {
	engine.CacheStoreJSON(ctx, engine.CacheKey(kind, rawURL), cachedExtraction{Title: title, Content: content})
}

// truncate caps s at max characters, appending an ellipsis marker when it
// does, matching every reader's content-length ceiling.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
