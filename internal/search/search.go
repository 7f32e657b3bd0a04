package search

import (
	"context"
	"strings"
)

// Result represents a single search hit from any provider.
type Result struct {
	Title   string
	URL     string
	Snippet string
	Date    string // optional publish date, provider-supplied
	Source  string // provider name for observability
}

// Provider is the capability the orchestrator needs from a search backend:
// general-web and news keyword search with a result cap.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	News(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

// DomainPolicy controls which hosts may appear in results and which may be
// scraped. Read-only at request time; configured at startup.
type DomainPolicy struct {
	// Allowlist, when non-empty, restricts results to matching domains
	// (subdomains included).
	Allowlist []string
	// NoScrape lists domains known to reject scraping. Their results are
	// kept snippet-only rather than dropped.
	NoScrape []string
}

// Allowed reports whether a result URL's host passes the allowlist.
func (p DomainPolicy) Allowed(host string) bool {
	if len(p.Allowlist) == 0 {
		return true
	}
	return matchesAny(host, p.Allowlist)
}

// ScrapeBlocked reports whether host is on the no-scrape list.
func (p DomainPolicy) ScrapeBlocked(host string) bool {
	return matchesAny(host, p.NoScrape)
}

func matchesAny(host string, domains []string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if h == d || strings.HasSuffix(h, "."+d) {
			return true
		}
	}
	return false
}
