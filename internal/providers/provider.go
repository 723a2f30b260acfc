// Package providers implements the Provider contract: turning a
// sub-query into ranked SearchResults, either via a self-hosted SearXNG
// instance or by scraping public search engines directly.
package providers

import (
	"context"

	"github.com/driftlynx/answerengine/internal/engine"
)

// Provider fans a query out to a single search backend.
type Provider interface {
	Name() string
	Search(ctx context.Context, query, language, timeRange string) ([]engine.SearchResult, error)
}
