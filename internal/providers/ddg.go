package providers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/driftlynx/answerengine/internal/engine"
)

var vqdPatterns = []*regexp.Regexp{
	regexp.MustCompile(`vqd='([^']+)'`),
	regexp.MustCompile(`vqd="([^"]+)"`),
	regexp.MustCompile(`vqd=([a-zA-Z0-9_-]+)`),
}

type ddgJSONResult struct {
	T string `json:"t"`
	A string `json:"a"`
	U string `json:"u"`
	C string `json:"c"`
}

// DDG scrapes DuckDuckGo directly, bypassing any SearXNG instance, using an
// impersonating TLS client so HTML fingerprinting doesn't block the request.
type DDG struct {
	Client *engine.ImpersonatingClient
	Region string
	Retry  engine.RetryPolicy
}

func NewDDG(client *engine.ImpersonatingClient, retry engine.RetryPolicy) *DDG {
	return &DDG{Client: client, Region: "wt-wt", Retry: retry}
}

func (d *DDG) Name() string { return "ddg_direct" }

func (d *DDG) Search(ctx context.Context, query, language, timeRange string) ([]engine.SearchResult, error) {
	region := d.Region
	if region == "" {
		region = "wt-wt"
	}
	engine.IncrProviderRequest()

	results, err := d.searchHTML(ctx, query, region)
	if err == nil && len(results) > 0 {
		return results, nil
	}

	vqd, err := d.getVQD(ctx, query)
	if err != nil {
		engine.IncrProviderError()
		return nil, fmt.Errorf("ddg: vqd: %w", err)
	}
	results, err = d.searchDJS(ctx, query, vqd, region)
	if err != nil {
		engine.IncrProviderError()
		return nil, fmt.Errorf("ddg: d.js: %w", err)
	}
	return results, nil
}

func (d *DDG) searchHTML(ctx context.Context, query, region string) ([]engine.SearchResult, error) {
	formBody := fmt.Sprintf("q=%s&kl=%s&df=", url.QueryEscape(query), url.QueryEscape(region))

	headers := engine.ChromeHeaders()
	headers["referer"] = "https://html.duckduckgo.com/"
	headers["content-type"] = "application/x-www-form-urlencoded"

	data, status, err := engine.RetryBytes(ctx, d.Retry, func() ([]byte, int, error) {
		return d.Client.Do("POST", "https://html.duckduckgo.com/html/", headers, strings.NewReader(formBody))
	})
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("ddg html status %d", status)
	}
	return parseDDGHTML(data)
}

func parseDDGHTML(data []byte) ([]engine.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}

	var results []engine.SearchResult
	doc.Find(".result, .web-result").Each(func(i int, s *goquery.Selection) {
		link := s.Find("a.result__a, .result__title a, a.result-link").First()
		title := strings.TrimSpace(link.Text())
		href, exists := link.Attr("href")
		if !exists || title == "" {
			return
		}

		href = ddgUnwrapURL(href)
		if href == "" {
			return
		}

		snippet := s.Find(".result__snippet, .result__body").First()
		content := strings.TrimSpace(snippet.Text())

		results = append(results, engine.SearchResult{
			Title:   title,
			Snippet: content,
			URL:     href,
			Engine:  "ddg_direct",
			Score:   1.0,
		})
	})
	return results, nil
}

// ddgUnwrapURL extracts the actual destination from DDG's redirect wrapper:
// //duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com&rut=...
func ddgUnwrapURL(href string) string {
	if strings.Contains(href, "duckduckgo.com/l/") || strings.Contains(href, "uddg=") {
		if u, err := url.Parse(href); err == nil {
			if uddg := u.Query().Get("uddg"); uddg != "" {
				return uddg
			}
		}
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	return ""
}

func (d *DDG) getVQD(ctx context.Context, query string) (string, error) {
	u := "https://duckduckgo.com/?q=" + url.QueryEscape(query)

	headers := engine.ChromeHeaders()
	headers["referer"] = "https://duckduckgo.com/"

	data, status, err := engine.RetryBytes(ctx, d.Retry, func() ([]byte, int, error) {
		return d.Client.Do("GET", u, headers, nil)
	})
	if err != nil {
		return "", err
	}
	if status != 200 {
		return "", fmt.Errorf("ddg homepage status %d", status)
	}

	body := string(data)
	for _, pat := range vqdPatterns {
		if m := pat.FindStringSubmatch(body); len(m) > 1 {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("vqd token not found in %d bytes", len(data))
}

func (d *DDG) searchDJS(ctx context.Context, query, vqd, region string) ([]engine.SearchResult, error) {
	params := url.Values{
		"q":   {query},
		"vqd": {vqd},
		"kl":  {region},
		"df":  {""},
		"l":   {"us-en"},
		"o":   {"json"},
	}
	u := "https://links.duckduckgo.com/d.js?" + params.Encode()

	headers := engine.ChromeHeaders()
	headers["referer"] = "https://duckduckgo.com/"
	headers["accept"] = "application/json, text/javascript, */*; q=0.01"

	data, status, err := engine.RetryBytes(ctx, d.Retry, func() ([]byte, int, error) {
		return d.Client.Do("GET", u, headers, nil)
	})
	if err != nil {
		return nil, err
	}
	if status != 200 && status != 202 {
		return nil, fmt.Errorf("ddg d.js status %d", status)
	}
	return parseDDGDJS(data)
}

func parseDDGDJS(data []byte) ([]engine.SearchResult, error) {
	body := strings.TrimSpace(string(data))
	if idx := strings.Index(body, "["); idx >= 0 {
		if end := strings.LastIndex(body, "]"); end > idx {
			body = body[idx : end+1]
		}
	}

	var raw []ddgJSONResult
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		limit := len(body)
		if limit > 200 {
			limit = 200
		}
		return nil, fmt.Errorf("ddg json parse: %w (first bytes: %s)", err, body[:limit])
	}

	var results []engine.SearchResult
	for _, r := range raw {
		resultURL := r.U
		if resultURL == "" {
			resultURL = r.C
		}
		if resultURL == "" || r.T == "" {
			continue
		}
		if strings.HasPrefix(resultURL, "https://duckduckgo.com/") {
			continue
		}
		results = append(results, engine.SearchResult{
			Title:   r.T,
			Snippet: r.A,
			URL:     resultURL,
			Engine:  "ddg_direct",
			Score:   1.0,
		})
	}
	return results, nil
}
