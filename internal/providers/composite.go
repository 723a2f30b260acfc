package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/driftlynx/answerengine/internal/engine"
)

// Composite holds providers in a fixed priority order and fails over
// between them. It never reorders its members and never fans a single
// query out to more than one of them at a time.
type Composite struct {
	Members []Provider
}

func NewComposite(members ...Provider) *Composite {
	return &Composite{Members: members}
}

func (c *Composite) Name() string { return "composite" }

// Search tries each member in order, returning the first non-empty result
// set. A member that errors or returns nothing is a soft failure: if
// members remain, Search advances to the next one; otherwise it returns an
// empty result with no error. Search only errors when Composite was built
// with no members at all — a configuration error at construction.
func (c *Composite) Search(ctx context.Context, query, language, timeRange string) ([]engine.SearchResult, error) {
	if len(c.Members) == 0 {
		return nil, fmt.Errorf("composite: no providers configured")
	}

	for _, member := range c.Members {
		results, err := member.Search(ctx, query, language, timeRange)
		if err != nil {
			slog.Debug("provider failed", slog.String("provider", member.Name()), slog.Any("error", err))
			continue
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	return nil, nil
}

// FilterByScore removes results below minScore, unless that would drop
// below minKeep — in which case the minKeep highest-ranked results (as
// given) are kept regardless of score.
func FilterByScore(results []engine.SearchResult, minScore float64, minKeep int) []engine.SearchResult {
	var out []engine.SearchResult
	for _, r := range results {
		if r.Score >= minScore {
			out = append(out, r)
		}
	}
	if len(out) < minKeep && len(results) >= minKeep {
		return results[:minKeep]
	}
	if len(out) < minKeep {
		return results
	}
	return out
}

// DedupByDomain keeps at most maxPerDomain results from any one domain,
// preserving input order otherwise.
func DedupByDomain(results []engine.SearchResult, maxPerDomain int) []engine.SearchResult {
	counts := make(map[string]int)
	var out []engine.SearchResult
	for _, r := range results {
		u, err := url.Parse(r.URL)
		if err != nil {
			continue
		}
		domain := u.Hostname()
		if counts[domain] < maxPerDomain {
			out = append(out, r)
			counts[domain]++
		}
	}
	return out
}

// DedupByURL removes exact-URL duplicates, keeping the first occurrence in
// input order.
func DedupByURL(results []engine.SearchResult) []engine.SearchResult {
	seen := make(map[string]bool, len(results))
	var out []engine.SearchResult
	for _, r := range results {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}
