// Package pipeline orchestrates one research round: plan, search, admit
// URLs past the security guard, fetch and extract content, escalate to the
// browser reader when static fetching looks defeated, sanitize text and
// fall back to search-result snippets when a page never recovers, then
// refine everything down to ranked evidence.
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/driftlynx/answerengine/internal/config"
	"github.com/driftlynx/answerengine/internal/crawler"
	"github.com/driftlynx/answerengine/internal/engine"
	"github.com/driftlynx/answerengine/internal/guard"
	"github.com/driftlynx/answerengine/internal/planner"
	"github.com/driftlynx/answerengine/internal/providers"
	"github.com/driftlynx/answerengine/internal/readers"
	"github.com/driftlynx/answerengine/internal/refine"
)

const (
	failedTextThreshold = 300
	snippetMinLength    = 20
	escalatedMinLength  = 100
)

// Context carries cross-round state the loop feeds back into a pipeline
// run; BlockedDomains grows as rounds accumulate failed sources.
type Context struct {
	BlockedDomains []string
}

// Pipeline wires one instance of every stage. A single Pipeline is reused
// across rounds within a loop run; it holds no per-round mutable state.
type Pipeline struct {
	Cfg      config.Config
	Planner  *planner.Planner
	Search   *providers.Composite
	Guard    *guard.Guard
	HTML     readers.Reader
	PDF      readers.Reader
	Browser  *readers.Browser
	Crawler  *crawler.Crawler
	Keyword  *refine.Keyword
	Hybrid   *refine.Hybrid
	Flash    *refine.Flash
}

// Run executes one pipeline round for query, honoring roundCtx's
// accumulated blocked domains. Any stage failure is captured into
// output.Trace["error"] rather than propagated.
func (p *Pipeline) Run(ctx context.Context, query string, roundCtx Context) (out engine.PipelineOutput) {
	out.Query = query
	out.Trace = map[string]any{}
	started := time.Now()
	defer func() {
		out.Trace["elapsed_ms"] = time.Since(started).Milliseconds()
	}()

	defer func() {
		if r := recover(); r != nil {
			out.Trace["error"] = fmt.Sprintf("pipeline panic: %v", r)
		}
	}()

	subQueries := p.Planner.Plan(ctx, query, roundCtx.BlockedDomains)
	out.SubQueries = subQueries
	out.Trace["sub_queries"] = len(subQueries)

	results := p.searchAll(ctx, subQueries)
	out.Trace["search_results"] = len(results)

	htmlURLs, pdfURLs, blocked := p.admitAndClassify(ctx, results)
	out.Trace["admitted_html"] = len(htmlURLs)
	out.Trace["admitted_pdf"] = len(pdfURLs)

	var pages []engine.FetchedPage
	switch {
	case p.Cfg.Mode == config.ModeTurbo:
		pages = append(pages, virtualPages(results, htmlURLs)...)
	case p.Cfg.UseNeuralCrawler && p.Browser != nil:
		pages = append(pages, p.Crawler.Crawl(ctx, htmlURLs, query, p.Cfg.ReaderMaxPages)...)
	default:
		reader := p.HTML
		if p.Cfg.ReaderType == config.ReaderBrowser && p.Browser != nil {
			reader = p.Browser
		}
		pages = append(pages, p.fetchAll(ctx, reader, htmlURLs)...)
	}
	pages = append(pages, p.fetchAll(ctx, p.PDF, pdfURLs)...)

	if p.Cfg.EnableStealthEscalation && p.Browser != nil && p.Cfg.Mode != config.ModeTurbo && p.Cfg.ReaderType != config.ReaderBrowser {
		pages = p.escalateFailed(ctx, pages)
	}

	snippetByURL := make(map[string]string, len(results))
	for _, r := range results {
		snippetByURL[r.URL] = r.Snippet
	}

	stillBlocked := make(map[string]bool)
	for i := range pages {
		p.sanitizeAndFallback(&pages[i], snippetByURL, stillBlocked)
	}
	for d := range blocked {
		stillBlocked[d] = true
	}
	for d := range stillBlocked {
		out.BlockedDomains = append(out.BlockedDomains, d)
	}
	out.Pages = pages

	switch p.Cfg.RerankerType {
	case config.RerankerFlash:
		out.Evidence = p.Flash.Refine(query, pages, p.Cfg.ChunkSize, p.Cfg.ChunkOverlap, p.Cfg.MaxEvidence)
	default:
		evidence := p.Hybrid.Refine(query, pages, p.Cfg.ChunkSize, p.Cfg.ChunkOverlap)
		if p.Cfg.MaxEvidence > 0 && len(evidence) > p.Cfg.MaxEvidence {
			evidence = evidence[:p.Cfg.MaxEvidence]
		}
		out.Evidence = evidence
	}
	out.Trace["evidence_count"] = len(out.Evidence)

	return out
}

// searchAll fans the composite search out across every sub-query
// concurrently and merges the results, deduplicating by URL.
func (p *Pipeline) searchAll(ctx context.Context, subQueries []string) []engine.SearchResult {
	type result struct {
		results []engine.SearchResult
	}
	resultsCh := make(chan result, len(subQueries))
	var wg sync.WaitGroup
	for _, sq := range subQueries {
		wg.Add(1)
		go func(sq string) {
			defer wg.Done()
			r, err := p.Search.Search(ctx, sq, "", "")
			if err != nil {
				return
			}
			resultsCh <- result{results: r}
		}(sq)
	}
	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	var merged []engine.SearchResult
	for r := range resultsCh {
		merged = append(merged, r.results...)
	}
	return providers.DedupByURL(merged)
}

// admitAndClassify applies the security guard to every search result,
// classifies survivors into HTML vs PDF queues by URL shape, and stops
// once the accepted total reaches ReaderMaxPages.
func (p *Pipeline) admitAndClassify(ctx context.Context, results []engine.SearchResult) (htmlURLs, pdfURLs []string, blockedDomains map[string]bool) {
	blockedDomains = make(map[string]bool)
	limit := p.Cfg.ReaderMaxPages
	accepted := 0

	for _, r := range results {
		if accepted >= limit {
			break
		}
		if !p.Guard.IsAllowedURL(ctx, r.URL) {
			if d := domainOf(r.URL); d != "" {
				blockedDomains[d] = true
			}
			continue
		}
		if isPDFURL(r.URL) {
			pdfURLs = append(pdfURLs, r.URL)
		} else {
			htmlURLs = append(htmlURLs, r.URL)
		}
		accepted++
	}
	return htmlURLs, pdfURLs, blockedDomains
}

func isPDFURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasSuffix(lower, ".pdf") || strings.Contains(lower, "/pdf/")
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// virtualPages synthesizes pages directly from search snippets without any
// network fetch, used in turbo mode to trade accuracy for latency.
func virtualPages(results []engine.SearchResult, htmlURLs []string) []engine.FetchedPage {
	wanted := make(map[string]bool, len(htmlURLs))
	for _, u := range htmlURLs {
		wanted[u] = true
	}
	var pages []engine.FetchedPage
	for _, r := range results {
		if !wanted[r.URL] {
			continue
		}
		pages = append(pages, engine.FetchedPage{
			URL:         r.URL,
			Title:       r.Title,
			Content:     r.Snippet,
			ContentType: "snippet",
			ReaderUsed:  "virtual",
			FetchedAt:   time.Now(),
		})
	}
	return pages
}

func (p *Pipeline) fetchAll(ctx context.Context, reader readers.Reader, urls []string) []engine.FetchedPage {
	if reader == nil || len(urls) == 0 {
		return nil
	}
	concurrency := p.Cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	sem := make(chan struct{}, concurrency)
	pages := make([]engine.FetchedPage, len(urls))

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, u string) {
			defer wg.Done()
			defer func() { <-sem }()
			fetchCtx := ctx
			if p.Cfg.ReaderTimeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, p.Cfg.ReaderTimeout)
				defer cancel()
			}
			page, err := reader.Read(fetchCtx, u)
			if err != nil {
				page.Err = err
			}
			pages[i] = page
		}(i, u)
	}
	wg.Wait()
	return pages
}

// escalateFailed re-fetches pages that look broken through the browser
// reader, keeping the original whenever the escalated text is too short to
// be an improvement.
func (p *Pipeline) escalateFailed(ctx context.Context, pages []engine.FetchedPage) []engine.FetchedPage {
	for i, page := range pages {
		if !readers.ShouldEscalate(page.Content, page.Err) {
			continue
		}
		escalated, err := p.Browser.Read(ctx, page.URL)
		if err == nil && len(escalated.Content) > escalatedMinLength {
			pages[i] = escalated
		}
	}
	return pages
}

// sanitizeAndFallback sanitizes a page's text and, if it is still failed,
// synthesizes text_plain from the matching search result's snippet. A
// failed page's domain is recorded as blocked whether or not a snippet
// replaces its text.
func (p *Pipeline) sanitizeAndFallback(page *engine.FetchedPage, snippets map[string]string, stillBlocked map[string]bool) {
	page.Content = p.Guard.SanitizeText(page.Content)

	failed := page.Err != nil || len(page.Content) < failedTextThreshold
	if !failed {
		return
	}
	if d := domainOf(page.URL); d != "" {
		stillBlocked[d] = true
	}
	if !p.Cfg.EnableSnippetFallback {
		return
	}

	snippet := snippets[page.URL]
	if len(snippet) < snippetMinLength {
		return
	}
	page.Content = snippet
	page.ContentType = "snippet"
	page.Err = nil
}
