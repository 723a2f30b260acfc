// Package crawler implements a best-first neural crawl: starting from a set
// of seed URLs, it follows the link whose anchor text and surrounding
// context score highest against the query, rather than crawling
// breadth-first or depth-first. Link scoring falls back to token overlap in
// the absence of a real embedding model, same as internal/refine's Encoder.
package crawler

import (
	"container/heap"
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"

	"github.com/driftlynx/answerengine/internal/engine"
	"github.com/driftlynx/answerengine/internal/readers"
	"github.com/driftlynx/answerengine/internal/refine"
)

const (
	// admissionThreshold rejects candidate links too weakly related to the
	// query to be worth adding to the frontier.
	admissionThreshold = 0.4
	// maxHitsPerDomain stops the crawl from getting stuck circling one site.
	maxHitsPerDomain = 3
	// domainRateLimit paces fetches to the same domain so the crawl doesn't
	// hammer one site back-to-back while chasing its internal links.
	domainRateLimit = rate.Limit(2) // 2 fetches/s per domain, refilling continuously
	domainRateBurst = 2
)

// candidate is one link waiting to be crawled, ordered by Score.
type candidate struct {
	url     string
	text    string
	context string
	score   float64
}

// frontier is a max-heap of candidates ordered by score, matching the
// "sort then pop best" shape of a best-first search.
type frontier []candidate

func (f frontier) Len() int            { return len(f) }
func (f frontier) Less(i, j int) bool  { return f[i].score > f[j].score }
func (f frontier) Swap(i, j int)       { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x interface{}) { *f = append(*f, x.(candidate)) }
func (f *frontier) Pop() interface{} {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

// pageFetcher is the single-navigation fetch *readers.Browser provides —
// named here so tests can stand in a stub without driving real Chrome.
type pageFetcher interface {
	FetchWithLinks(ctx context.Context, rawURL string) (engine.FetchedPage, []readers.Link, error)
}

// Crawler walks outward from seed URLs, prioritizing links that look most
// relevant to the query over any fixed traversal order. It fetches each
// page through the browser reader's combined FetchWithLinks so link
// discovery and content extraction come from one navigation rather than
// two separate fetches.
type Crawler struct {
	Browser pageFetcher
	Encoder refine.Encoder

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

func New(browser *readers.Browser, encoder refine.Encoder) *Crawler {
	var fetcher pageFetcher = browser
	if browser == nil {
		fetcher = readers.NewBrowser(0, 0)
	}
	if encoder == nil {
		encoder = refine.NewEncoder()
	}
	return &Crawler{Browser: fetcher, Encoder: encoder, limiters: make(map[string]*rate.Limiter)}
}

// limiterFor returns the shared per-domain rate limiter, creating it on
// first use.
func (c *Crawler) limiterFor(domain string) *rate.Limiter {
	c.limitersMu.Lock()
	defer c.limitersMu.Unlock()
	if c.limiters == nil {
		c.limiters = make(map[string]*rate.Limiter)
	}
	l, ok := c.limiters[domain]
	if !ok {
		l = rate.NewLimiter(domainRateLimit, domainRateBurst)
		c.limiters[domain] = l
	}
	return l
}

// Crawl runs a best-first search bounded by maxPages, returning every page
// it fetched (including ones whose extraction failed, so the caller can see
// what was attempted).
func (c *Crawler) Crawl(ctx context.Context, startURLs []string, query string, maxPages int) []engine.FetchedPage {
	if maxPages <= 0 {
		maxPages = 5
	}

	visited := make(map[string]bool)
	domainHits := make(map[string]int)

	f := make(frontier, 0, len(startURLs))
	for _, u := range startURLs {
		f = append(f, candidate{url: u, text: "seed", score: 1.0})
	}
	heap.Init(&f)

	var pages []engine.FetchedPage
	for f.Len() > 0 && len(pages) < maxPages {
		if ctx.Err() != nil {
			break
		}
		cur := heap.Pop(&f).(candidate)
		if visited[cur.url] {
			continue
		}
		visited[cur.url] = true

		domain := hostOf(cur.url)
		if domainHits[domain] >= maxHitsPerDomain {
			continue
		}
		domainHits[domain]++

		if err := c.limiterFor(domain).Wait(ctx); err != nil {
			continue
		}

		engine.IncrFetchRequest()
		page, links, err := c.fetchWithLinks(ctx, cur.url)
		pages = append(pages, page)
		if err != nil || len(links) == 0 {
			continue
		}

		for _, l := range links {
			score := c.Encoder.Score(query, l.Text+" "+l.Context)
			if score > admissionThreshold {
				heap.Push(&f, candidate{url: l.URL, text: l.Text, context: l.Context, score: score})
			}
		}
	}
	return pages
}

// fetchWithLinks fetches rawURL once through the browser reader, returning
// both its extracted content and the links discovered during that same
// navigation.
func (c *Crawler) fetchWithLinks(ctx context.Context, rawURL string) (engine.FetchedPage, []readers.Link, error) {
	page, links, err := c.Browser.FetchWithLinks(ctx, rawURL)
	if err != nil {
		engine.IncrFetchError()
		page.Err = err
		return page, nil, err
	}
	return page, links, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}
