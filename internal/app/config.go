package app

import "time"

// Config holds runtime configuration for the middleware. All values are read
// once at startup; there is no hot reload.
type Config struct {
	ListenAddr string

	// Search provider
	SearxURL string
	SearxKey string
	SearxUA  string

	// LLM (intent classification)
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// Admission and pooling
	RequestsPerMinute int
	ProviderPoolSize  int
	ScrapeParallel    int

	// Domain policy
	DomainAllowlist []string
	NoScrapeDomains []string

	// Timeouts
	FetchTimeout    time.Duration
	ProviderTimeout time.Duration
	IntentTimeout   time.Duration

	// Intent cache
	IntentCacheSize int
	IntentCacheTTL  time.Duration

	Verbose bool
}
