package readers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	trafilatura "github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"

	"github.com/driftlynx/answerengine/internal/engine"
)

// HTML extracts main article content from a static HTML page, fetched
// through the TLS-impersonating client so static fetches carry the same
// JA3 fingerprint as the search providers. It tries go-trafilatura first
// (best main-content detection) and falls back to a goquery CSS-selector
// heuristic when trafilatura fails; a goquery parse error is returned as
// the page error. When the first fetch fails, the page is fetched once
// more and its tags are stripped with regexes.
type HTML struct {
	Client          *engine.ImpersonatingClient
	MaxContentChars int
	UserAgent       string
	Retry           engine.RetryPolicy
}

func NewHTML(client *engine.ImpersonatingClient, maxContentChars int, userAgent string, retry engine.RetryPolicy) *HTML {
	if maxContentChars <= 0 {
		maxContentChars = 20000
	}
	return &HTML{Client: client, MaxContentChars: maxContentChars, UserAgent: userAgent, Retry: retry}
}

func (h *HTML) Name() string { return "html" }

func (h *HTML) Read(ctx context.Context, rawURL string) (engine.FetchedPage, error) {
	if cached, ok := cacheLookup(ctx, h.Name(), rawURL); ok {
		return cached, nil
	}
	engine.IncrFetchRequest()

	page := engine.FetchedPage{URL: rawURL, ContentType: "html", ReaderUsed: h.Name(), FetchedAt: time.Now()}

	body, err := h.fetchBody(ctx, rawURL, true)
	if err != nil {
		title, content, ferr := h.fetchWithFallback(ctx, rawURL)
		if ferr != nil {
			engine.IncrFetchError()
			page.Err = ferr
			return page, ferr
		}
		page.Title, page.Content = title, content
		cacheStore(ctx, h.Name(), rawURL, page.Title, page.Content)
		return page, nil
	}

	parsedURL, _ := url.Parse(rawURL)
	result, terr := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{
		OriginalURL:     parsedURL,
		EnableFallback:  true,
		Focus:           trafilatura.FavorRecall,
		ExcludeComments: true,
	})
	if terr != nil {
		title, content, gerr := h.fetchWithGoquery(rawURL, body)
		if gerr != nil {
			engine.IncrFetchError()
			page.Err = gerr
			return page, gerr
		}
		page.Title, page.Content = title, content
		cacheStore(ctx, h.Name(), rawURL, page.Title, page.Content)
		return page, nil
	}

	text := result.ContentText
	if result.ContentNode != nil {
		var htmlBuf bytes.Buffer
		if renderErr := html.Render(&htmlBuf, result.ContentNode); renderErr == nil {
			if md, mdErr := htmltomarkdown.ConvertString(htmlBuf.String()); mdErr == nil && strings.TrimSpace(md) != "" {
				text = md
			}
		}
	}

	page.Title = result.Metadata.Title
	page.Content = truncate(strings.TrimSpace(text), h.MaxContentChars)
	cacheStore(ctx, h.Name(), rawURL, page.Title, page.Content)
	return page, nil
}

func (h *HTML) fetchWithGoquery(rawURL string, body []byte) (title, content string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("goquery parse: %w", err)
	}

	title = doc.Find("title").First().Text()
	if title == "" {
		doc.Find("meta[property='og:title']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			title, _ = s.Attr("content")
			return title == ""
		})
	}

	removeSelectors := []string{
		"script", "style", "noscript", "iframe", "svg",
		"header", "footer", "nav", "aside",
		".advertisement", ".ad", ".sidebar", ".comments",
		"[role=navigation]", "[role=banner]", "[role=contentinfo]",
	}
	doc.Find(strings.Join(removeSelectors, ", ")).Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	contentSel := doc.Find("article, main, .content, .post-content, .article-content, #content").First()
	if contentSel.Length() == 0 {
		contentSel = doc.Find("body")
	}

	content = collapseWhitespace(contentSel.Text())
	return title, truncate(content, h.MaxContentChars), nil
}

var (
	titleTagRe   = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)
	ogTitleRe    = regexp.MustCompile(`(?i)<meta[^>]*property=["']og:title["'][^>]*content=["']([^"']+)["']`)
	anyTagRe     = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// fetchWithFallback fetches the page again and strips tags with regexes
// rather than parsing. Read calls it only after the first fetch failed, not
// when trafilatura or goquery fail on a fetched body.
func (h *HTML) fetchWithFallback(ctx context.Context, rawURL string) (title, content string, err error) {
	body, err := h.fetchBody(ctx, rawURL, true)
	if err != nil {
		return "", "", err
	}
	raw := string(body)

	if m := titleTagRe.FindStringSubmatch(raw); len(m) > 1 {
		title = strings.TrimSpace(m[1])
	}
	if title == "" {
		if m := ogTitleRe.FindStringSubmatch(raw); len(m) > 1 {
			title = strings.TrimSpace(m[1])
		}
	}

	for _, tag := range []string{"script", "style", "noscript", "header", "footer", "nav", "aside", "iframe"} {
		re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		raw = re.ReplaceAllString(raw, "")
	}
	content = collapseWhitespace(anyTagRe.ReplaceAllString(raw, ""))
	return title, truncate(content, h.MaxContentChars), nil
}

func collapseWhitespace(s string) string {
	s = whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// fetchBody performs a GET through the impersonating client with
// exponential backoff on transient failures. tls-client handles transparent
// gzip/br decoding internally; the client does not follow redirects, so a
// redirect response is returned as a non-200 status error.
func (h *HTML) fetchBody(ctx context.Context, rawURL string, isHTML bool) ([]byte, error) {
	headers := engine.ChromeHeaders()
	if h.UserAgent != "" {
		headers["user-agent"] = h.UserAgent
	}
	if isHTML {
		headers["accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	} else {
		headers["accept"] = "text/plain,*/*;q=0.9"
	}

	retry := h.Retry
	if retry.MaxAttempts == 0 {
		retry = engine.DefaultRetryPolicy
	}

	data, status, err := engine.RetryBytes(ctx, retry, func() ([]byte, int, error) {
		return h.Client.Do("GET", rawURL, headers, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if status != 200 {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, status)
	}
	return data, nil
}

// ErrEmptyContent marks an extraction that yielded nothing usable; the
// pipeline treats this as an escalation trigger for the browser reader.
var ErrEmptyContent = errors.New("html: empty content")
