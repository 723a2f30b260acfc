package readers

import (
	"errors"
	"strings"
	"testing"
)

func TestShouldEscalate(t *testing.T) {
	cases := []struct {
		name    string
		content string
		err     error
		want    bool
	}{
		{"error always escalates", "", errors.New("boom"), true},
		{"empty content escalates", "", nil, true},
		{"short content escalates", "too short", nil, true},
		{"cloudflare marker escalates", strings.Repeat("x", 400) + " please enable javascript and cookies to continue. cloudflare", nil, true},
		{"long normal content does not escalate", strings.Repeat("word ", 100), nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldEscalate(tc.content, tc.err); got != tc.want {
				t.Errorf("ShouldEscalate() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExtractFromRenderedHTML(t *testing.T) {
	html := `<html><head><title>Example</title></head><body><nav>skip</nav><article>Hello world</article></body></html>`
	title, content := extractFromRenderedHTML(html)
	if title != "Example" {
		t.Errorf("title = %q, want %q", title, "Example")
	}
	if content != "Hello world" {
		t.Errorf("content = %q, want %q", content, "Hello world")
	}
}
