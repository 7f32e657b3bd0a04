package app

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema. Nested sections map
// naturally to the flag groups in cmd/goscout.
type FileConfig struct {
	Listen string `yaml:"listen"`

	Searx struct {
		URL string `yaml:"url"`
		Key string `yaml:"key"`
		UA  string `yaml:"ua"`
	} `yaml:"searx"`

	LLM struct {
		BaseURL string `yaml:"base"`
		Model   string `yaml:"model"`
		APIKey  string `yaml:"key"`
	} `yaml:"llm"`

	Limits struct {
		RequestsPerMinute int `yaml:"requestsPerMinute"`
		ProviderPool      int `yaml:"providerPool"`
		ScrapeParallel    int `yaml:"scrapeParallel"`
	} `yaml:"limits"`

	// Durations use Go syntax ("8s", "1m30s"); yaml.v3 has no native
	// time.Duration decoding.
	Timeouts struct {
		Fetch    string `yaml:"fetch"`
		Provider string `yaml:"provider"`
		Intent   string `yaml:"intent"`
	} `yaml:"timeouts"`

	Domains struct {
		Allow    []string `yaml:"allow"`
		NoScrape []string `yaml:"noScrape"`
	} `yaml:"domains"`

	Intent struct {
		CacheSize int    `yaml:"cacheSize"`
		CacheTTL  string `yaml:"cacheTTL"`
	} `yaml:"intent"`

	Verbose bool `yaml:"verbose"`
}

// LoadConfigFile parses a YAML config file.
func LoadConfigFile(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for name, v := range map[string]string{
		"timeouts.fetch":    fc.Timeouts.Fetch,
		"timeouts.provider": fc.Timeouts.Provider,
		"timeouts.intent":   fc.Timeouts.Intent,
		"intent.cacheTTL":   fc.Intent.CacheTTL,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", name, err)
		}
	}
	return &fc, nil
}

// Apply copies file values into cfg. Callers apply the file first and let
// explicitly-set flags override afterwards.
func (fc *FileConfig) Apply(cfg *Config) {
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setStr(&cfg.ListenAddr, fc.Listen)
	setStr(&cfg.SearxURL, fc.Searx.URL)
	setStr(&cfg.SearxKey, fc.Searx.Key)
	setStr(&cfg.SearxUA, fc.Searx.UA)
	setStr(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	setStr(&cfg.LLMModel, fc.LLM.Model)
	setStr(&cfg.LLMAPIKey, fc.LLM.APIKey)

	if fc.Limits.RequestsPerMinute > 0 {
		cfg.RequestsPerMinute = fc.Limits.RequestsPerMinute
	}
	if fc.Limits.ProviderPool > 0 {
		cfg.ProviderPoolSize = fc.Limits.ProviderPool
	}
	if fc.Limits.ScrapeParallel > 0 {
		cfg.ScrapeParallel = fc.Limits.ScrapeParallel
	}
	setDur := func(dst *time.Duration, v string) {
		if v == "" {
			return
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
		}
	}
	setDur(&cfg.FetchTimeout, fc.Timeouts.Fetch)
	setDur(&cfg.ProviderTimeout, fc.Timeouts.Provider)
	setDur(&cfg.IntentTimeout, fc.Timeouts.Intent)
	if len(fc.Domains.Allow) > 0 {
		cfg.DomainAllowlist = fc.Domains.Allow
	}
	if len(fc.Domains.NoScrape) > 0 {
		cfg.NoScrapeDomains = fc.Domains.NoScrape
	}
	if fc.Intent.CacheSize > 0 {
		cfg.IntentCacheSize = fc.Intent.CacheSize
	}
	setDur(&cfg.IntentCacheTTL, fc.Intent.CacheTTL)
	if fc.Verbose {
		cfg.Verbose = true
	}
}
