package guard

import "strings"

// highAuthorityDomains scores 1.0 on exact match, 0.9 on subdomain match.
var highAuthorityDomains = map[string]bool{
	"wikipedia.org":    true,
	"arxiv.org":        true,
	"nih.gov":          true,
	"nasa.gov":         true,
	"reuters.com":      true,
	"bloomberg.com":    true,
	"nytimes.com":      true,
	"wsj.com":          true,
	"bbc.com":          true,
	"nature.com":       true,
	"sciencemag.org":   true,
	"ieee.org":         true,
	"acm.org":          true,
	"github.com":       true,
	"stackoverflow.com": true,
	"python.org":       true,
	"mozilla.org":      true,
}

// lowAuthorityMarkers are substrings of a domain that mark content-farm or
// affiliate-spam sources.
var lowAuthorityMarkers = []string{"best-", "top10", "review-", "coupon", "promo", "affiliate", "scam"}

// AuthorityScore returns a 0..1 trust score for a source domain. Exact
// matches on the high-authority list score 1.0, subdomains of them score
// 0.9, low-authority markers score 0.2, everything else is neutral at 0.5.
func AuthorityScore(domain string) float64 {
	domain = strings.ToLower(domain)

	if highAuthorityDomains[domain] {
		return 1.0
	}
	for root := range highAuthorityDomains {
		if strings.HasSuffix(domain, "."+root) {
			return 0.9
		}
	}
	for _, marker := range lowAuthorityMarkers {
		if strings.Contains(domain, marker) {
			return 0.2
		}
	}
	return 0.5
}

// ApplyAuthorityBoost scales a raw relevance score by a source's authority,
// per the hybrid refiner's combination rule: raw*(1+(authority-0.5))
// clamped to [0, 1].
func ApplyAuthorityBoost(raw, authority float64) float64 {
	boosted := raw * (1 + (authority - 0.5))
	if boosted < 0 {
		return 0
	}
	if boosted > 1 {
		return 1
	}
	return boosted
}
