package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/driftlynx/answerengine/internal/engine"
)

// SearXNG scrapes a self-hosted SearXNG instance's HTML results page,
// through the TLS-impersonating client, rather than its JSON API — the
// JSON API is commonly blocked on a default docker-compose SearXNG
// deployment unless `search.formats` is explicitly reconfigured, while the
// HTML page is always on.
type SearXNG struct {
	BaseURL string
	Client  *engine.ImpersonatingClient
	Retry   engine.RetryPolicy
}

// NewSearXNG builds a SearXNG provider against baseURL (no trailing slash).
func NewSearXNG(baseURL string, client *engine.ImpersonatingClient, retry engine.RetryPolicy) *SearXNG {
	return &SearXNG{BaseURL: baseURL, Client: client, Retry: retry}
}

func (s *SearXNG) Name() string { return "searxng" }

func (s *SearXNG) Search(ctx context.Context, query, language, timeRange string) ([]engine.SearchResult, error) {
	u, err := url.Parse(s.BaseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("searxng: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	if language != "" && language != "all" {
		q.Set("language", language)
	}
	if timeRange != "" {
		q.Set("time_range", timeRange)
	}
	u.RawQuery = q.Encode()

	engine.IncrProviderRequest()

	headers := engine.ChromeHeaders()
	headers["referer"] = s.BaseURL + "/"

	data, status, err := engine.RetryBytes(ctx, s.Retry, func() ([]byte, int, error) {
		return s.Client.Do("GET", u.String(), headers, nil)
	})
	if err != nil {
		engine.IncrProviderError()
		return nil, fmt.Errorf("searxng: %w", err)
	}
	if status != 200 {
		engine.IncrProviderError()
		return nil, fmt.Errorf("searxng status %d", status)
	}

	return parseSearXNGHTML(data)
}

func parseSearXNGHTML(data []byte) ([]engine.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}

	var results []engine.SearchResult
	doc.Find("#results .result, .result").Each(func(i int, sel *goquery.Selection) {
		link := sel.Find("a.url_header, h3 a, .result_header a").First()
		title := strings.TrimSpace(link.Text())
		href, exists := link.Attr("href")
		if !exists || title == "" || href == "" {
			return
		}

		content := strings.TrimSpace(sel.Find("p.content, .content").First().Text())

		results = append(results, engine.SearchResult{
			Title:   title,
			Snippet: content,
			URL:     href,
			Engine:  "searxng",
			Score:   1.0,
		})
	})
	return results, nil
}

// commonSearxngPorts mirrors the original implementation's local probe list
// for auto-detecting a SearXNG instance when no base URL is configured.
var commonSearxngPorts = []string{"8787", "8080", "8888"}

// AutoDetectSearXNG probes a short list of common local SearXNG ports and
// returns the first reachable base URL, or "" if none responds. This probe
// stays on a plain client since it's a one-shot local reachability check,
// not a scrape that needs to survive bot filtering.
func AutoDetectSearXNG(ctx context.Context, client *http.Client) string {
	for _, port := range commonSearxngPorts {
		base := "http://127.0.0.1:" + port
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/search?q=ping&format=json", nil)
		if err != nil {
			continue
		}
		resp, err := client.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < 500 {
			return base
		}
	}
	return ""
}
