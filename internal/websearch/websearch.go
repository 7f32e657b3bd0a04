package websearch

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/hyperifyio/goscout/internal/ratelimit"
	"github.com/hyperifyio/goscout/internal/scrape"
	"github.com/hyperifyio/goscout/internal/search"
)

// Result is one aggregated search entry. URL is unique within a Response;
// IsFullContent is true only when Content is present.
type Result struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Snippet       string `json:"snippet"`
	Content       string `json:"content,omitempty"`
	IsFullContent bool   `json:"is_full_content"`
	Phase         string `json:"phase"`
	Date          string `json:"date,omitempty"`
}

// Response is the aggregate outcome of one search call. Immutable once
// returned; owned by the caller.
type Response struct {
	Results []Result `json:"results"`
	Depth   string   `json:"depth"`
	Error   string   `json:"error,omitempty"`
}

// The only failure modes that propagate to the caller. Everything else
// degrades to snippet-only entries or an empty result list.
var (
	ErrQueryTooLong = errors.New("query exceeds maximum length")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

const (
	maxQueryLen            = 500
	defaultProviderTimeout = 10 * time.Second
	defaultScrapeParallel  = 8
)

// Service drives multi-phase retrieval: broad and news queries, primary
// scraping, news scraping, and targeted follow-ups, under a global rate
// limiter, a provider pool, and a scrape-concurrency semaphore.
type Service struct {
	pool    *search.Pool
	scraper *scrape.Scraper
	limiter *ratelimit.Limiter
	policy  search.DomainPolicy

	providerTimeout time.Duration
	profiles        map[string]DepthProfile
	scrapeSem       *semaphore.Weighted
}

// Options tunes a Service beyond its required collaborators.
type Options struct {
	// ProviderTimeout bounds one provider call. Zero means default (10s).
	ProviderTimeout time.Duration
	// ScrapeParallel caps concurrent page fetches across all phases, so a
	// deeper profile's larger fan-out cannot exhaust outbound connections.
	// Zero means default (8).
	ScrapeParallel int
}

// New assembles the orchestrator. All collaborators are constructed once at
// startup and shared across requests.
func New(pool *search.Pool, scraper *scrape.Scraper, limiter *ratelimit.Limiter, policy search.DomainPolicy, opts Options) *Service {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = defaultProviderTimeout
	}
	if opts.ScrapeParallel <= 0 {
		opts.ScrapeParallel = defaultScrapeParallel
	}
	if len(policy.NoScrape) == 0 {
		policy.NoScrape = DefaultNoScrape
	}
	return &Service{
		pool:            pool,
		scraper:         scraper,
		limiter:         limiter,
		policy:          policy,
		providerTimeout: opts.ProviderTimeout,
		profiles:        defaultProfiles(),
		scrapeSem:       semaphore.NewWeighted(int64(opts.ScrapeParallel)),
	}
}

// Search runs the phased retrieval for query at the named depth. Only query
// validation and rate limiting surface as errors; every downstream failure
// degrades and the call still returns a usable Response.
func (s *Service) Search(ctx context.Context, query, depth string) (*Response, error) {
	query = strings.TrimSpace(query)
	if len(query) > maxQueryLen {
		return nil, ErrQueryTooLong
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return nil, ErrRateLimited
	}

	profile, ok := s.profiles[strings.ToLower(strings.TrimSpace(depth))]
	if !ok {
		profile = s.profiles["normal"]
	}
	log.Info().Str("query", query).Str("depth", profile.Name).Msg("search started")

	// Phase 1: broad and news provider queries in parallel.
	var broad, news []search.Result
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		broad = s.providerCall(ctx, query, profile.BroadResults, false)
	}()
	go func() {
		defer wg.Done()
		news = s.providerCall(ctx, query, profile.NewsResults, true)
	}()
	wg.Wait()
	broad = s.filterAllowed(broad)
	news = s.filterAllowed(news)

	seen := make(map[string]bool)
	results := make([]Result, 0, len(broad)+len(news))

	// Phase 2: scrape unblocked broad results up to the budget; blocked
	// entries are appended snippet-only, never dropped.
	results = append(results, s.scrapePhase(ctx, broad, seen, profile.ScrapeBudget, profile.MaxWords, "primary", "snippet", "broad")...)

	// Phase 3: news results not already collected.
	results = append(results, s.scrapePhase(ctx, news, seen, profile.NewsBudget, profile.MaxWords, "news", "news", "news")...)

	// Phase 4: targeted follow-up queries, deduplicated against everything
	// already collected.
	targeted := s.targetedResults(ctx, query, profile, seen)
	results = append(results, s.scrapePhase(ctx, targeted, seen, profile.TargetedBudget, profile.MaxWords, "targeted", "targeted", "targeted")...)

	resp := &Response{Results: results, Depth: profile.Name}
	if len(results) == 0 {
		resp.Results = []Result{}
		resp.Error = "no results"
	}
	log.Info().Str("depth", profile.Name).Int("results", len(results)).Msg("search finished")
	return resp, nil
}

// providerCall checks a provider out of the pool, runs one bounded query,
// and always returns the instance. A failed or timed-out call yields an
// empty list so the remaining phases proceed.
func (s *Service) providerCall(ctx context.Context, query string, limit int, newsCategory bool) []search.Result {
	if limit <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	prov, err := s.pool.Acquire(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("provider checkout failed")
		return nil
	}
	defer s.pool.Release(prov)

	var out []search.Result
	if newsCategory {
		out, err = prov.News(ctx, query, limit)
	} else {
		out, err = prov.Search(ctx, query, limit)
	}
	if err != nil {
		log.Warn().Err(err).Str("query", query).Bool("news", newsCategory).Msg("provider call failed")
		return nil
	}
	return out
}

// scrapePhase folds one phase's provider results into aggregated entries.
// Up to budget unblocked, unseen URLs are fetched concurrently; a fetch that
// comes back empty degrades that entry to its snippet. Results keep provider
// order regardless of fetch completion order.
func (s *Service) scrapePhase(ctx context.Context, in []search.Result, seen map[string]bool, budget, maxWords int, scrapedPhase, snippetPhase, blockedPhase string) []Result {
	type slot struct {
		res     search.Result
		phase   string
		scraped bool
	}
	slots := make([]slot, 0, len(in))
	var scrapeURLs []string
	var scrapeIdx []int
	for _, r := range in {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		switch {
		case s.policy.ScrapeBlocked(hostOf(r.URL)):
			slots = append(slots, slot{res: r, phase: blockedPhase})
		case len(scrapeURLs) < budget:
			slots = append(slots, slot{res: r, phase: scrapedPhase, scraped: true})
			scrapeURLs = append(scrapeURLs, r.URL)
			scrapeIdx = append(scrapeIdx, len(slots)-1)
		default:
			slots = append(slots, slot{res: r, phase: snippetPhase})
		}
	}

	contents := s.scrapeAll(ctx, scrapeURLs, maxWords)

	out := make([]Result, 0, len(slots))
	for _, sl := range slots {
		out = append(out, Result{
			Title:   sl.res.Title,
			URL:     sl.res.URL,
			Snippet: sl.res.Snippet,
			Phase:   sl.phase,
			Date:    sl.res.Date,
		})
	}
	for i, idx := range scrapeIdx {
		if contents[i] != "" {
			out[idx].Content = contents[i]
			out[idx].IsFullContent = true
		}
	}
	return out
}

// scrapeAll fans page fetches out under the global semaphore and waits for
// all of them; each element is "" when that single fetch failed.
func (s *Service) scrapeAll(ctx context.Context, urls []string, maxWords int) []string {
	out := make([]string, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			if err := s.scrapeSem.Acquire(ctx, 1); err != nil {
				return
			}
			defer s.scrapeSem.Release(1)
			out[i] = s.scraper.FetchAndExtract(ctx, u, maxWords)
		}(i, u)
	}
	wg.Wait()
	return out
}

// targetedResults runs the profile's follow-up queries in parallel and
// flattens their hits, skipping URLs already collected by earlier phases.
func (s *Service) targetedResults(ctx context.Context, query string, profile DepthProfile, seen map[string]bool) []search.Result {
	groups := make([][]search.Result, len(profile.TargetedSuffixes))
	var wg sync.WaitGroup
	for i, suffix := range profile.TargetedSuffixes {
		wg.Add(1)
		go func(i int, suffix string) {
			defer wg.Done()
			groups[i] = s.providerCall(ctx, query+" "+suffix, profile.TargetedBudget, false)
		}(i, suffix)
	}
	wg.Wait()

	var flat []search.Result
	for _, g := range groups {
		for _, r := range s.filterAllowed(g) {
			if !seen[r.URL] {
				flat = append(flat, r)
			}
		}
	}
	return flat
}

func (s *Service) filterAllowed(in []search.Result) []search.Result {
	out := in[:0]
	for _, r := range in {
		if s.policy.Allowed(hostOf(r.URL)) {
			out = append(out, r)
		}
	}
	return out
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
