package readers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/driftlynx/answerengine/internal/engine"
)

// Browser renders a page in headless Chrome before extracting text. It is
// the escalation path for sources that return little or no content to the
// HTML reader — client-rendered SPAs, JS-gated paywalls, and
// bot-challenge interstitials.
type Browser struct {
	Timeout         time.Duration
	MaxContentChars int
}

func NewBrowser(timeout time.Duration, maxContentChars int) *Browser {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if maxContentChars <= 0 {
		maxContentChars = 20000
	}
	return &Browser{Timeout: timeout, MaxContentChars: maxContentChars}
}

func (b *Browser) Name() string { return "browser" }

func (b *Browser) Read(ctx context.Context, rawURL string) (engine.FetchedPage, error) {
	if cached, ok := cacheLookup(ctx, b.Name(), rawURL); ok {
		return cached, nil
	}
	page, _, err := b.render(ctx, rawURL)
	if err != nil {
		return page, err
	}
	cacheStore(ctx, b.Name(), rawURL, page.Title, page.Content)
	return page, nil
}

// FetchWithLinks renders rawURL once and returns both its extracted content
// and the outbound links found in that same navigation, so crawling a page
// for its links never requires a second fetch of the page itself.
func (b *Browser) FetchWithLinks(ctx context.Context, rawURL string) (engine.FetchedPage, []Link, error) {
	page, rendered, err := b.render(ctx, rawURL)
	if err != nil {
		return page, nil, err
	}
	links := ExtractLinks(rawURL, []byte(rendered))
	cacheStore(ctx, b.Name(), rawURL, page.Title, page.Content)
	return page, links, nil
}

// render drives one headless-Chrome navigation and returns both the
// extracted page and the raw rendered HTML, so callers needing links can
// reuse the same DOM snapshot instead of navigating twice.
func (b *Browser) render(ctx context.Context, rawURL string) (engine.FetchedPage, string, error) {
	engine.IncrFetchRequest()
	engine.IncrBrowserEscalation()
	page := engine.FetchedPage{URL: rawURL, ContentType: "html", ReaderUsed: b.Name(), FetchedAt: time.Now()}

	browserCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	if err := chromedp.Run(browserCtx,
		network.Enable(),
		fetch.Enable().WithPatterns([]*fetch.RequestPattern{{URLPattern: "*"}}),
	); err != nil {
		engine.IncrFetchError()
		return page, "", fmt.Errorf("browser: enable interception: %w", err)
	}

	listenCtx, listenCancel := context.WithCancel(browserCtx)
	defer listenCancel()

	chromedp.ListenTarget(listenCtx, func(ev any) {
		e, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		switch e.ResourceType {
		case network.ResourceTypeImage, network.ResourceTypeStylesheet,
			network.ResourceTypeMedia, network.ResourceTypeFont:
			_ = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(listenCtx)
		default:
			_ = fetch.ContinueRequest(e.RequestID).Do(listenCtx)
		}
	})

	pageCtx, pageCancel := context.WithTimeout(browserCtx, b.Timeout)
	defer pageCancel()

	var rendered string
	err := chromedp.Run(pageCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500*time.Millisecond),
		chromedp.OuterHTML("html", &rendered, chromedp.ByQuery),
	)
	if err != nil {
		engine.IncrFetchError()
		return page, "", fmt.Errorf("browser: render %s: %w", rawURL, err)
	}

	title, content := extractFromRenderedHTML(rendered)
	page.Title = title
	page.Content = truncate(content, b.MaxContentChars)
	return page, rendered, nil
}

func extractFromRenderedHTML(rendered string) (title, content string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return "", collapseWhitespace(anyTagRe.ReplaceAllString(rendered, ""))
	}

	title = doc.Find("title").First().Text()

	doc.Find("script, style, noscript, nav, footer, header, aside").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	contentSel := doc.Find("article, main, #content, .content").First()
	if contentSel.Length() == 0 {
		contentSel = doc.Find("body")
	}
	return title, collapseWhitespace(contentSel.Text())
}

// ShouldEscalate reports whether a reader's output is broken enough to
// warrant re-fetching with the browser reader: empty, too short, or a
// known JS/anti-bot interstitial marker.
func ShouldEscalate(content string, err error) bool {
	if err != nil {
		return true
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || len(trimmed) < 300 {
		return true
	}
	lower := strings.ToLower(trimmed)
	return strings.Contains(lower, "enable javascript") || strings.Contains(lower, "cloudflare")
}
