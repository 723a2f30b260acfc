// Package guard implements the security boundary between the pipeline and
// the open internet: URL admission (SSRF protection, domain allow/block
// lists), PII sanitization of extracted text, and source authority scoring.
package guard

import (
	"context"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/driftlynx/answerengine/internal/config"
)

// Guard enforces one run's SecurityConfig against candidate URLs and text.
type Guard struct {
	cfg config.SecurityConfig
}

func New(cfg config.SecurityConfig) *Guard {
	return &Guard{cfg: cfg}
}

// IsAllowedURL reports whether rawURL may be fetched. Blocked domains are
// checked first (substring match against the host), then — if an allow
// list is configured — the host must match it. Only under the "public"
// network profile is the target's resolved IP checked for
// loopback/private/link-local/reserved ranges; a hostname that fails to
// resolve is treated as reachable, not blocked, matching the posture that
// DNS failures should surface as a later fetch error, not a silent guard
// rejection.
func (g *Guard) IsAllowedURL(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "" {
		return false
	}

	for _, blocked := range g.cfg.BlockedDomains {
		if blocked != "" && strings.Contains(host, blocked) {
			return false
		}
	}

	if len(g.cfg.AllowedDomains) > 0 {
		allowed := false
		for _, a := range g.cfg.AllowedDomains {
			if a != "" && strings.Contains(host, a) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	if g.cfg.NetworkProfile == config.NetworkPublic && isPrivateHost(ctx, host) {
		return false
	}

	return true
}

// isPrivateHost resolves host and reports whether it names a
// loopback/private/link-local/reserved address. Resolution failure returns
// false (not private) — the original implementation this is grounded on
// never blocks on a DNS error, only on a resolved private IP.
func isPrivateHost(ctx context.Context, host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "0.0.0.0", "::1":
		return true
	}

	if ip := net.ParseIP(host); ip != nil {
		return isPrivateIP(ip)
	}

	resolver := net.DefaultResolver
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil || len(addrs) == 0 {
		return false
	}
	for _, a := range addrs {
		if isPrivateIP(a.IP) {
			return true
		}
	}
	return false
}

func isPrivateIP(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil && ip4[0] >= 240 {
		return true
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\b(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
)

// SanitizeText redacts emails and phone numbers when PII masking is
// enabled; otherwise it returns text unchanged.
func (g *Guard) SanitizeText(text string) string {
	if !g.cfg.PIIMasking {
		return text
	}
	text = emailPattern.ReplaceAllString(text, "[EMAIL_REDACTED]")
	text = phonePattern.ReplaceAllString(text, "[PHONE_REDACTED]")
	return text
}

// ContainsBlockedKeyword reports whether text contains any configured
// blocked keyword (case-insensitive substring match).
func (g *Guard) ContainsBlockedKeyword(text string) bool {
	if len(g.cfg.BlockedKeywords) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range g.cfg.BlockedKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
