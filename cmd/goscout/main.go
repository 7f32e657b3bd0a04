package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goscout/internal/app"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := app.LoadEnvFile(".env"); err != nil {
		log.Warn().Err(err).Msg("load .env failed")
	}

	var (
		configPath    string
		listenAddr    string
		searxURL      string
		searxKey      string
		searxUA       string
		llmBaseURL    string
		llmModel      string
		llmKey        string
		rpm           int
		poolSize      int
		scrapeWorkers int
		fetchTimeout  time.Duration
		provTimeout   time.Duration
		intentTimeout time.Duration
		intentCacheN  int
		intentTTL     time.Duration
		domainsAllow  string
		domainsBlock  string
		verbose       bool
	)

	flag.StringVar(&configPath, "config", os.Getenv("GOSCOUT_CONFIG"), "Path to YAML config file (flags override file values)")
	flag.StringVar(&listenAddr, "listen", ":8080", "HTTP listen address")
	flag.StringVar(&searxURL, "searx.url", os.Getenv("SEARX_URL"), "SearxNG base URL")
	flag.StringVar(&searxKey, "searx.key", os.Getenv("SEARX_KEY"), "SearxNG API key (optional)")
	flag.StringVar(&searxUA, "searx.ua", "goscout/1.0 (+https://github.com/hyperifyio/goscout)", "Custom User-Agent for provider requests")
	flag.StringVar(&llmBaseURL, "llm.base", os.Getenv("LLM_BASE_URL"), "OpenAI-compatible base URL for intent classification")
	flag.StringVar(&llmModel, "llm.model", os.Getenv("LLM_MODEL"), "Model name for intent classification")
	flag.StringVar(&llmKey, "llm.key", os.Getenv("LLM_API_KEY"), "API key for OpenAI-compatible server")
	flag.IntVar(&rpm, "rate.rpm", 30, "Search requests admitted per trailing 60s window")
	flag.IntVar(&poolSize, "provider.pool", 5, "Search-provider client pool size")
	flag.IntVar(&scrapeWorkers, "scrape.parallel", 8, "Maximum concurrent page fetches")
	flag.DurationVar(&fetchTimeout, "timeout.fetch", 8*time.Second, "Per-page fetch timeout")
	flag.DurationVar(&provTimeout, "timeout.provider", 10*time.Second, "Per-provider-call timeout")
	flag.DurationVar(&intentTimeout, "timeout.intent", 5*time.Second, "Intent classification call timeout")
	flag.IntVar(&intentCacheN, "intent.cacheSize", 1000, "Intent decision cache capacity")
	flag.DurationVar(&intentTTL, "intent.cacheTTL", 120*time.Second, "Intent decision cache TTL")
	flag.StringVar(&domainsAllow, "domains.allow", os.Getenv("DOMAINS_ALLOW"), "Comma-separated allowlist; if set, only these domains appear in results (subdomains included)")
	flag.StringVar(&domainsBlock, "domains.noScrape", os.Getenv("DOMAINS_NOSCRAPE"), "Comma-separated domains kept snippet-only instead of scraped")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	cfg := app.Config{ListenAddr: listenAddr}
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("config file")
		}
		fc.Apply(&cfg)
	}

	// Explicitly set flags take precedence over the config file.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	apply := func(name string, fn func()) {
		if set[name] || configPath == "" {
			fn()
		}
	}
	apply("listen", func() { cfg.ListenAddr = listenAddr })
	apply("searx.url", func() { cfg.SearxURL = searxURL })
	apply("searx.key", func() { cfg.SearxKey = searxKey })
	apply("searx.ua", func() { cfg.SearxUA = searxUA })
	apply("llm.base", func() { cfg.LLMBaseURL = llmBaseURL })
	apply("llm.model", func() { cfg.LLMModel = llmModel })
	apply("llm.key", func() { cfg.LLMAPIKey = llmKey })
	apply("rate.rpm", func() { cfg.RequestsPerMinute = rpm })
	apply("provider.pool", func() { cfg.ProviderPoolSize = poolSize })
	apply("scrape.parallel", func() { cfg.ScrapeParallel = scrapeWorkers })
	apply("timeout.fetch", func() { cfg.FetchTimeout = fetchTimeout })
	apply("timeout.provider", func() { cfg.ProviderTimeout = provTimeout })
	apply("timeout.intent", func() { cfg.IntentTimeout = intentTimeout })
	apply("intent.cacheSize", func() { cfg.IntentCacheSize = intentCacheN })
	apply("intent.cacheTTL", func() { cfg.IntentCacheTTL = intentTTL })
	apply("domains.allow", func() { cfg.DomainAllowlist = splitList(domainsAllow) })
	apply("domains.noScrape", func() { cfg.NoScrapeDomains = splitList(domainsBlock) })
	if verbose {
		cfg.Verbose = true
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if cfg.SearxURL == "" {
		log.Fatal().Msg("searx.url is required")
	}

	a := app.New(cfg)
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("serve")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown")
	}
	log.Info().Msg("stopped")
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
