package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFile_ApplyOverridesAndDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goscout.yaml")
	doc := `
listen: ":9090"
searx:
  url: "http://searx.local:8888"
limits:
  requestsPerMinute: 12
timeouts:
  fetch: "4s"
intent:
  cacheTTL: "90s"
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}

	cfg := Config{ListenAddr: ":8080", FetchTimeout: 8 * time.Second}
	fc.Apply(&cfg)

	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.SearxURL != "http://searx.local:8888" {
		t.Errorf("SearxURL = %q", cfg.SearxURL)
	}
	if cfg.RequestsPerMinute != 12 {
		t.Errorf("RequestsPerMinute = %d", cfg.RequestsPerMinute)
	}
	if cfg.FetchTimeout != 4*time.Second {
		t.Errorf("FetchTimeout = %v", cfg.FetchTimeout)
	}
	if cfg.IntentCacheTTL != 90*time.Second {
		t.Errorf("IntentCacheTTL = %v", cfg.IntentCacheTTL)
	}
	// Values absent from the file keep their prior settings.
	if cfg.ProviderTimeout != 0 {
		t.Errorf("ProviderTimeout = %v, want untouched zero", cfg.ProviderTimeout)
	}
}

func TestLoadConfigFile_RejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goscout.yaml")
	if err := os.WriteFile(path, []byte("timeouts:\n  fetch: \"soon\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatalf("expected error for unparseable duration")
	}
}
