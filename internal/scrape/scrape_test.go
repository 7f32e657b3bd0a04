package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// allowAll accepts every URL.
type allowAll struct{}

func (allowAll) ValidateURL(context.Context, string) bool { return true }

// denyPaths rejects URLs containing any of the listed fragments, recording
// everything it was asked about.
type denyPaths struct {
	mu      sync.Mutex
	deny    []string
	checked []string
}

func (d *denyPaths) ValidateURL(_ context.Context, raw string) bool {
	d.mu.Lock()
	d.checked = append(d.checked, raw)
	d.mu.Unlock()
	for _, frag := range d.deny {
		if strings.Contains(raw, frag) {
			return false
		}
	}
	return true
}

func articlePage(text string) string {
	return "<html><body><main><article><p>" + text + "</p></article></main></body></html>"
}

func longProse() string {
	return strings.Repeat("A sentence of article prose with enough words. ", 20)
}

func TestFetchAndExtract_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articlePage(longProse())))
	}))
	defer srv.Close()

	s := &Scraper{Validator: allowAll{}}
	got := s.FetchAndExtract(context.Background(), srv.URL, 1000)
	if !strings.Contains(got, "article prose") {
		t.Fatalf("expected extracted prose, got %q", got)
	}
}

func TestFetchAndExtract_SoftFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/404":
			http.NotFound(w, r)
		case "/500":
			w.WriteHeader(500)
		case "/pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.7"))
		}
	}))
	defer srv.Close()

	s := &Scraper{Validator: allowAll{}}
	for _, path := range []string{"/404", "/500", "/pdf"} {
		if got := s.FetchAndExtract(context.Background(), srv.URL+path, 100); got != "" {
			t.Errorf("expected empty content for %s, got %q", path, got)
		}
	}
	// Connection errors are soft too.
	if got := s.FetchAndExtract(context.Background(), "http://127.0.0.1:1/", 100); got != "" {
		t.Errorf("expected empty content for connect failure, got %q", got)
	}
}

func TestFetchAndExtract_RevalidatesEveryRedirectHop(t *testing.T) {
	var served []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		served = append(served, r.URL.Path)
		mu.Unlock()
		switch r.URL.Path {
		case "/hop1":
			http.Redirect(w, r, "/hop2", http.StatusFound)
		case "/hop2":
			http.Redirect(w, r, "/hop3", http.StatusFound)
		case "/hop3":
			http.Redirect(w, r, "/hop4", http.StatusFound)
		default:
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(articlePage(longProse())))
		}
	}))
	defer srv.Close()

	v := &denyPaths{deny: []string{"/hop3"}}
	s := &Scraper{Validator: v}
	got := s.FetchAndExtract(context.Background(), srv.URL+"/hop1", 1000)
	if got != "" {
		t.Fatalf("expected abort at unsafe hop, got content %q", got)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, p := range served {
		if p == "/hop3" || p == "/hop4" {
			t.Fatalf("request reached %s past the unsafe hop; served: %v", p, served)
		}
	}
}

func TestFetchAndExtract_RedirectCap(t *testing.T) {
	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		http.Redirect(w, r, "/again", http.StatusFound)
	}))
	defer srv.Close()

	s := &Scraper{Validator: allowAll{}}
	if got := s.FetchAndExtract(context.Background(), srv.URL, 100); got != "" {
		t.Fatalf("expected empty content for redirect loop, got %q", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if hits > defaultMaxRedirects+1 {
		t.Fatalf("redirect loop not capped: %d requests", hits)
	}
}

func TestFetchAndExtract_RotatesUserAgents(t *testing.T) {
	var agents []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.Header.Get("User-Agent"))
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage(longProse())))
	}))
	defer srv.Close()

	s := &Scraper{Validator: allowAll{}}
	for i := 0; i < len(userAgents)+1; i++ {
		_ = s.FetchAndExtract(context.Background(), srv.URL, 100)
	}
	mu.Lock()
	defer mu.Unlock()
	distinct := map[string]bool{}
	for _, a := range agents {
		if a == "" {
			t.Fatalf("request sent without a user agent")
		}
		distinct[a] = true
	}
	if len(distinct) < 2 {
		t.Fatalf("expected user agent rotation, saw %v", agents)
	}
}

func TestFetchAndExtract_UnsafeInitialURL(t *testing.T) {
	v := &denyPaths{deny: []string{"blocked.example"}}
	s := &Scraper{Validator: v}
	if got := s.FetchAndExtract(context.Background(), "http://blocked.example/", 100); got != "" {
		t.Fatalf("expected empty content for unsafe initial url, got %q", got)
	}
	if len(v.checked) != 1 {
		t.Fatalf("expected exactly one validation, got %d", len(v.checked))
	}
}
