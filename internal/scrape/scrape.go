package scrape

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/goscout/internal/extract"
)

// Validator gates every network hop. Satisfied by *safeurl.Validator.
type Validator interface {
	ValidateURL(ctx context.Context, raw string) bool
}

// userAgents is a small fixed pool rotated across requests so scrapes look
// like ordinary browser traffic.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

// Scraper fetches one URL under safety constraints and reduces it to clean
// text. Every failure mode is soft: the result is "" and the caller keeps the
// provider snippet instead.
type Scraper struct {
	HTTPClient *http.Client
	Validator  Validator
	// MaxRedirects caps manual redirect hops. Zero means default (5).
	MaxRedirects int
	// FetchTimeout bounds one HTTP request. Zero means default (8s).
	FetchTimeout time.Duration
	// MaxBodyBytes caps how much of a response is read. Zero means 2 MiB.
	MaxBodyBytes int64

	uaCounter atomic.Uint32
}

const (
	defaultMaxRedirects = 5
	defaultFetchTimeout = 8 * time.Second
	defaultMaxBodyBytes = 2 << 20
)

// FetchAndExtract retrieves rawURL and returns its extracted text capped at
// maxWords. Redirects are followed manually so the validator re-checks every
// hop; the chain aborts on the first unsafe target.
func (s *Scraper) FetchAndExtract(ctx context.Context, rawURL string, maxWords int) string {
	maxHops := s.MaxRedirects
	if maxHops <= 0 {
		maxHops = defaultMaxRedirects
	}

	current := rawURL
	for hop := 0; hop <= maxHops; hop++ {
		if s.Validator != nil && !s.Validator.ValidateURL(ctx, current) {
			log.Warn().Str("url", current).Int("hop", hop).Msg("unsafe url, scrape abandoned")
			return ""
		}
		body, redirect, ok := s.fetchOnce(ctx, current)
		if redirect != "" {
			current = redirect
			continue
		}
		if !ok {
			return ""
		}
		return extract.FromHTML(body, maxWords)
	}
	log.Warn().Str("url", rawURL).Msg("redirect chain too long")
	return ""
}

// fetchOnce performs a single request with redirects disabled. It returns
// either the body, or the absolute redirect target, or neither on failure.
func (s *Scraper) fetchOnce(ctx context.Context, rawURL string) (body []byte, redirect string, ok bool) {
	timeout := s.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		log.Warn().Str("url", rawURL).Err(err).Msg("bad scrape url")
		return nil, "", false
	}
	req.Header.Set("User-Agent", s.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client().Do(req)
	if err != nil {
		log.Warn().Str("url", rawURL).Err(err).Msg("scrape request failed")
		return nil, "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		loc := resp.Header.Get("Location")
		if loc == "" {
			return nil, "", false
		}
		target, err := req.URL.Parse(loc)
		if err != nil {
			log.Warn().Str("url", rawURL).Str("location", loc).Msg("unparsable redirect")
			return nil, "", false
		}
		return nil, target.String(), false
	}
	if resp.StatusCode != http.StatusOK {
		log.Debug().Str("url", rawURL).Int("status", resp.StatusCode).Msg("scrape skipped")
		return nil, "", false
	}
	ct := resp.Header.Get("Content-Type")
	if !isHTMLContentType(ct) {
		log.Debug().Str("url", rawURL).Str("contentType", ct).Msg("non-html response skipped")
		return nil, "", false
	}

	limit := s.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	reader, err := charset.NewReader(io.LimitReader(resp.Body, limit), ct)
	if err != nil {
		reader = io.LimitReader(resp.Body, limit)
	}
	b, err := io.ReadAll(reader)
	if err != nil {
		log.Warn().Str("url", rawURL).Err(err).Msg("read body failed")
		return nil, "", false
	}
	return b, "", true
}

func (s *Scraper) client() *http.Client {
	if s.HTTPClient != nil {
		// Clone so disabling automatic redirects never mutates the caller's
		// client. The manual hop loop owns redirect handling.
		c := *s.HTTPClient
		c.CheckRedirect = noRedirect
		return &c
	}
	return &http.Client{CheckRedirect: noRedirect}
}

func noRedirect(_ *http.Request, _ []*http.Request) error {
	return http.ErrUseLastResponse
}

func (s *Scraper) nextUserAgent() string {
	n := s.uaCounter.Add(1)
	return userAgents[int(n-1)%len(userAgents)]
}

func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return ct == "" || strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
