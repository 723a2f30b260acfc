package readers

import "testing"

func TestExtractLinksFiltersInvisible(t *testing.T) {
	body := []byte(`<html><body>
		<a href="/visible">Visible link</a>
		<a href="/hidden-attr" hidden>Hidden attribute</a>
		<a href="/aria-hidden" aria-hidden="true">Aria hidden</a>
		<a href="/display-none" style="display:none">Display none</a>
		<div style="visibility: hidden"><a href="/ancestor-hidden">Ancestor hidden</a></div>
	</body></html>`)

	links := ExtractLinks("https://example.com", body)

	got := make(map[string]bool)
	for _, l := range links {
		got[l.URL] = true
	}

	if !got["https://example.com/visible"] {
		t.Error("expected visible link to be kept")
	}
	for _, hidden := range []string{"/hidden-attr", "/aria-hidden", "/display-none", "/ancestor-hidden"} {
		if got["https://example.com"+hidden] {
			t.Errorf("expected %s to be filtered as invisible", hidden)
		}
	}
}

func TestExtractLinksTruncatesContext(t *testing.T) {
	longText := ""
	for i := 0; i < 50; i++ {
		longText += "word "
	}
	body := []byte(`<html><body><p><a href="/x">link</a> ` + longText + `</p></body></html>`)

	links := ExtractLinks("https://example.com", body)
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(links))
	}
	if len(links[0].Context) > maxLinkContextChars {
		t.Errorf("context length = %d, want <= %d", len(links[0].Context), maxLinkContextChars)
	}
}

func TestExtractLinksDedupesAndSkipsNonHTTP(t *testing.T) {
	body := []byte(`<html><body>
		<a href="/a">one</a>
		<a href="/a">duplicate</a>
		<a href="#frag">fragment</a>
		<a href="javascript:void(0)">js</a>
		<a href="mailto:x@example.com">mail</a>
	</body></html>`)

	links := ExtractLinks("https://example.com", body)
	if len(links) != 1 {
		t.Fatalf("expected 1 deduped http link, got %d: %+v", len(links), links)
	}
	if links[0].URL != "https://example.com/a" {
		t.Errorf("unexpected URL %q", links[0].URL)
	}
}
