package readers

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is a hyperlink discovered on a fetched page, along with enough
// surrounding text for a link scorer to judge relevance without fetching
// the target.
type Link struct {
	URL     string
	Text    string
	Context string
}

// maxLinkContextChars caps the surrounding text captured per link so the
// crawler's link scorer sees a consistent, bounded snippet rather than an
// entire enclosing div's text.
const maxLinkContextChars = 200

// ExtractLinks pulls the hyperlinks out of body, resolving
// relative hrefs against baseURL and attaching up to maxLinkContextChars of
// the anchor's enclosing paragraph as context. Links hidden from a reader
// via CSS or ARIA (tracking pixels, off-screen nav duplicates) are skipped.
// Malformed documents yield a nil slice rather than an error — link
// discovery is best-effort.
func ExtractLinks(baseURL string, body []byte) []Link {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var links []Link
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		if isInvisible(s) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""
		abs := resolved.String()
		if seen[abs] {
			return
		}
		seen[abs] = true

		text := collapseWhitespace(s.Text())
		context := capRunes(collapseWhitespace(s.Closest("p, li, td, div").Text()), maxLinkContextChars)
		links = append(links, Link{URL: abs, Text: text, Context: context})
	})
	return links
}

// isInvisible reports whether the anchor or any of its ancestors is hidden
// from a reader via the hidden/aria-hidden attributes or an inline
// display:none/visibility:hidden style.
func isInvisible(s *goquery.Selection) bool {
	if isHiddenNode(s) {
		return true
	}
	invisible := false
	s.Parents().EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if isHiddenNode(p) {
			invisible = true
			return false
		}
		return true
	})
	return invisible
}

func isHiddenNode(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	if v, ok := s.Attr("aria-hidden"); ok && strings.EqualFold(strings.TrimSpace(v), "true") {
		return true
	}
	if style, ok := s.Attr("style"); ok {
		style = strings.ToLower(style)
		if strings.Contains(style, "display:none") || strings.Contains(style, "display: none") ||
			strings.Contains(style, "visibility:hidden") || strings.Contains(style, "visibility: hidden") {
			return true
		}
	}
	return false
}

// capRunes truncates s to at most max runes without an ellipsis marker —
// link context is a best-effort snippet, not user-facing truncated prose.
func capRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
