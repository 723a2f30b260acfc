package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/driftlynx/answerengine/internal/engine"
)

// Startpage scrapes Startpage's results page directly.
type Startpage struct {
	Client *engine.ImpersonatingClient
	Retry  engine.RetryPolicy
}

func NewStartpage(client *engine.ImpersonatingClient, retry engine.RetryPolicy) *Startpage {
	return &Startpage{Client: client, Retry: retry}
}

func (s *Startpage) Name() string { return "startpage_direct" }

func (s *Startpage) Search(ctx context.Context, query, language, timeRange string) ([]engine.SearchResult, error) {
	if language == "" || language == "all" {
		language = "english"
	}
	engine.IncrProviderRequest()

	formBody := fmt.Sprintf("query=%s&cat=web&language=%s", formEncode(query), formEncode(language))

	headers := engine.ChromeHeaders()
	headers["referer"] = "https://www.startpage.com/"
	headers["content-type"] = "application/x-www-form-urlencoded"
	headers["accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	data, status, err := engine.RetryBytes(ctx, s.Retry, func() ([]byte, int, error) {
		return s.Client.Do("POST", "https://www.startpage.com/sp/search", headers, strings.NewReader(formBody))
	})
	if err != nil {
		engine.IncrProviderError()
		return nil, fmt.Errorf("startpage: %w", err)
	}
	if status != 200 {
		engine.IncrProviderError()
		return nil, fmt.Errorf("startpage status %d", status)
	}

	return parseStartpageHTML(data)
}

func parseStartpageHTML(data []byte) ([]engine.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}

	var results []engine.SearchResult
	doc.Find(".w-gl__result, .result").Each(func(i int, sel *goquery.Selection) {
		link := sel.Find("a.w-gl__result-title, h3 a, a.result-link").First()
		title := strings.TrimSpace(link.Text())
		href, exists := link.Attr("href")
		if !exists || title == "" {
			return
		}
		if href == "" || strings.Contains(href, "startpage.com/do/") {
			return
		}

		desc := sel.Find("p.w-gl__description, .w-gl__description, p.result-description").First()
		content := strings.TrimSpace(desc.Text())

		results = append(results, engine.SearchResult{
			Title:   title,
			Snippet: content,
			URL:     href,
			Engine:  "startpage_direct",
			Score:   1.0,
		})
	})
	return results, nil
}

// formEncode is minimal application/x-www-form-urlencoded encoding for the
// small set of characters our static form fields can contain.
func formEncode(s string) string {
	return strings.NewReplacer(
		" ", "+",
		"&", "%26",
		"=", "%3D",
		"+", "%2B",
	).Replace(s)
}
