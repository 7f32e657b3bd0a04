package app

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goscout/internal/intent"
	"github.com/hyperifyio/goscout/internal/llm"
	"github.com/hyperifyio/goscout/internal/ratelimit"
	"github.com/hyperifyio/goscout/internal/safeurl"
	"github.com/hyperifyio/goscout/internal/scrape"
	"github.com/hyperifyio/goscout/internal/search"
	"github.com/hyperifyio/goscout/internal/websearch"
)

// App owns the process-wide service objects: the provider pool, the rate
// limiter, the intent cache, and the scraper. Everything is constructed once
// here and handed to request handlers by reference, with Close as the
// explicit shutdown step.
type App struct {
	cfg Config

	Search *websearch.Service
	Intent *intent.Classifier

	outbound *http.Client
}

func New(cfg Config) *App {
	outbound := newOutboundHTTPClient()

	validator := &safeurl.Validator{}
	scraper := &scrape.Scraper{
		HTTPClient:   outbound,
		Validator:    validator,
		FetchTimeout: cfg.FetchTimeout,
	}

	pool := search.NewPool(cfg.ProviderPoolSize, func() search.Provider {
		return &search.SearxNG{
			BaseURL:    cfg.SearxURL,
			APIKey:     cfg.SearxKey,
			UserAgent:  cfg.SearxUA,
			HTTPClient: outbound,
		}
	})

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	limiter := ratelimit.New(rpm, time.Minute)

	svc := websearch.New(pool, scraper, limiter,
		search.DomainPolicy{Allowlist: cfg.DomainAllowlist, NoScrape: cfg.NoScrapeDomains},
		websearch.Options{ProviderTimeout: cfg.ProviderTimeout, ScrapeParallel: cfg.ScrapeParallel},
	)

	llmCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		llmCfg.BaseURL = cfg.LLMBaseURL
	}
	llmCfg.HTTPClient = outbound
	classifier := intent.New(&llm.OpenAIProvider{Inner: openai.NewClientWithConfig(llmCfg)}, cfg.LLMModel, cfg.IntentCacheSize, cfg.IntentCacheTTL)
	classifier.CallTimeout = cfg.IntentTimeout

	log.Info().
		Str("searx", cfg.SearxURL).
		Str("llmModel", cfg.LLMModel).
		Int("providerPool", pool.Size()).
		Int("rpm", rpm).
		Msg("services initialized")

	return &App{cfg: cfg, Search: svc, Intent: classifier, outbound: outbound}
}

// Close releases pooled connections.
func (a *App) Close() {
	a.outbound.CloseIdleConnections()
}
