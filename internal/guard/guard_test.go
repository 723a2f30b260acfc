package guard

import (
	"context"
	"testing"

	"github.com/driftlynx/answerengine/internal/config"
)

func TestIsAllowedURL_BlockedDomain(t *testing.T) {
	g := New(config.SecurityConfig{
		BlockedDomains: []string{"evil.example"},
		NetworkProfile: config.NetworkEnterprise,
	})
	if g.IsAllowedURL(context.Background(), "https://sub.evil.example/page") {
		t.Error("expected blocked domain to be rejected")
	}
}

func TestIsAllowedURL_AllowList(t *testing.T) {
	g := New(config.SecurityConfig{
		AllowedDomains: []string{"good.example"},
		NetworkProfile: config.NetworkEnterprise,
	})
	if !g.IsAllowedURL(context.Background(), "https://good.example/page") {
		t.Error("expected allow-listed domain to pass")
	}
	if g.IsAllowedURL(context.Background(), "https://other.example/page") {
		t.Error("expected non-allow-listed domain to be rejected")
	}
}

func TestIsAllowedURL_PublicProfileBlocksLoopback(t *testing.T) {
	g := New(config.SecurityConfig{NetworkProfile: config.NetworkPublic})
	if g.IsAllowedURL(context.Background(), "http://127.0.0.1:8080/admin") {
		t.Error("expected loopback address to be rejected under public profile")
	}
	if g.IsAllowedURL(context.Background(), "http://localhost/admin") {
		t.Error("expected localhost to be rejected under public profile")
	}
}

func TestIsAllowedURL_EnterpriseProfileAllowsLoopback(t *testing.T) {
	g := New(config.SecurityConfig{NetworkProfile: config.NetworkEnterprise})
	if !g.IsAllowedURL(context.Background(), "http://127.0.0.1:8080/internal") {
		t.Error("expected loopback to be allowed under enterprise profile")
	}
}

func TestIsAllowedURL_UnresolvableHostNotBlocked(t *testing.T) {
	g := New(config.SecurityConfig{NetworkProfile: config.NetworkPublic})
	if !g.IsAllowedURL(context.Background(), "https://this-domain-should-not-resolve.invalid/x") {
		t.Error("expected a DNS resolution failure to pass through rather than be blocked")
	}
}

func TestSanitizeText(t *testing.T) {
	g := New(config.SecurityConfig{PIIMasking: true})
	out := g.SanitizeText("contact me at jane@example.com or 555-123-4567")
	if out == "contact me at jane@example.com or 555-123-4567" {
		t.Error("expected PII to be redacted")
	}

	g2 := New(config.SecurityConfig{PIIMasking: false})
	in := "jane@example.com"
	if got := g2.SanitizeText(in); got != in {
		t.Errorf("expected text unchanged when PII masking disabled, got %q", got)
	}
}

func TestAuthorityScore(t *testing.T) {
	cases := []struct {
		domain string
		want   float64
	}{
		{"wikipedia.org", 1.0},
		{"en.wikipedia.org", 0.9},
		{"best-coupon-deals.com", 0.2},
		{"some-random-blog.com", 0.5},
	}
	for _, tc := range cases {
		if got := AuthorityScore(tc.domain); got != tc.want {
			t.Errorf("AuthorityScore(%q) = %v, want %v", tc.domain, got, tc.want)
		}
	}
}

func TestApplyAuthorityBoost(t *testing.T) {
	if got := ApplyAuthorityBoost(0.5, 1.0); got < 0.74 || got > 0.76 {
		t.Errorf("ApplyAuthorityBoost(0.5, 1.0) = %v, want ~0.75", got)
	}
	if got := ApplyAuthorityBoost(1.0, 1.0); got != 1.0 {
		t.Errorf("expected clamp to 1.0, got %v", got)
	}
}
