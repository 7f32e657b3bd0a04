package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// SearxNG implements Provider against a SearxNG instance's /search endpoint.
type SearxNG struct {
	BaseURL    string
	APIKey     string // optional
	HTTPClient *http.Client
	UserAgent  string // optional custom UA
}

func (s *SearxNG) Name() string { return "searxng" }

// Search queries the general category.
func (s *SearxNG) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	return s.search(ctx, query, "general", limit)
}

// News queries the news category.
func (s *SearxNG) News(ctx context.Context, query string, limit int) ([]Result, error) {
	return s.search(ctx, query, "news", limit)
}

func (s *SearxNG) search(ctx context.Context, query, category string, limit int) ([]Result, error) {
	if s.BaseURL == "" {
		return nil, fmt.Errorf("missing searxng base url")
	}
	if limit <= 0 {
		limit = 10
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(u.Path, "/search") {
		u.Path = strings.TrimRight(u.Path, "/") + "/search"
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("language", "auto")
	q.Set("safesearch", "1")
	q.Set("categories", category)
	q.Set("count", fmt.Sprintf("%d", limit))
	if s.APIKey != "" {
		q.Set("apikey", s.APIKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	hc := s.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("searxng status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return normalizeResults(body, s.Name(), limit)
}

// rawResult tolerates the key variants different provider builds emit:
// url vs href for the link, content vs body vs snippet for the summary.
type rawResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Href          string `json:"href"`
	Content       string `json:"content"`
	Body          string `json:"body"`
	Snippet       string `json:"snippet"`
	PublishedDate string `json:"publishedDate"`
	Date          string `json:"date"`
}

// normalizeResults maps any recognized provider payload shape, either a
// wrapped {"results": [...]} object or a bare array, onto canonical Results.
// Unrecognized shapes are an error, not something to guess further about.
func normalizeResults(body []byte, source string, limit int) ([]Result, error) {
	var raw []rawResult
	var wrapped struct {
		Results []rawResult `json:"results"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Results != nil {
		raw = wrapped.Results
	} else if err := json.Unmarshal(body, &raw); err != nil {
		log.Warn().Str("source", source).Msg("unrecognized provider payload shape")
		return nil, fmt.Errorf("unrecognized provider payload")
	}

	out := make([]Result, 0, len(raw))
	for _, r := range raw {
		link := firstNonEmpty(r.URL, r.Href)
		if link == "" || r.Title == "" {
			continue
		}
		out = append(out, Result{
			Title:   strings.TrimSpace(r.Title),
			URL:     strings.TrimSpace(link),
			Snippet: strings.TrimSpace(firstNonEmpty(r.Content, r.Body, r.Snippet)),
			Date:    strings.TrimSpace(firstNonEmpty(r.PublishedDate, r.Date)),
			Source:  source,
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
