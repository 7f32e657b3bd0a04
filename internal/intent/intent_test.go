package intent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// fakeLLM counts calls and replays a canned reply or error.
type fakeLLM struct {
	mu    sync.Mutex
	calls int
	reply string
	err   error
}

func (f *fakeLLM) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.reply}}},
	}, nil
}

func (f *fakeLLM) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const searchReply = `{"needs_search": true, "search_query": "bitcoin price", "reason": "current data"}`

func TestClassify_FastPaths(t *testing.T) {
	f := &fakeLLM{reply: searchReply}
	c := New(f, "test-model", 0, 0)

	cases := []struct {
		query string
		needs bool
	}{
		{"hi", false},
		{"Hello", false},
		{"[document] quarterly report text ...", false},
		{strings.Repeat("pasted ocr text ", 200), false},
		{"search for cheap flights to oslo", true},
		{"can you look up the ferry schedule", true},
	}
	for _, tc := range cases {
		d := c.Classify(context.Background(), tc.query, nil)
		if d.NeedsSearch != tc.needs {
			t.Errorf("Classify(%.30q) needs_search = %v, want %v", tc.query, d.NeedsSearch, tc.needs)
		}
	}
	if f.count() != 0 {
		t.Fatalf("fast paths must not call the model, got %d calls", f.count())
	}
}

func TestClassify_CachesModelDecisions(t *testing.T) {
	f := &fakeLLM{reply: searchReply}
	c := New(f, "test-model", 10, time.Minute)

	d1 := c.Classify(context.Background(), "What does bitcoin trade at", nil)
	d2 := c.Classify(context.Background(), "what does bitcoin trade at  ", nil)
	if f.count() != 1 {
		t.Fatalf("expected one model call for the same normalized query, got %d", f.count())
	}
	if !d1.NeedsSearch || d1.SearchQuery != "bitcoin price" {
		t.Fatalf("unexpected decision: %+v", d1)
	}
	if d2 != d1 {
		t.Fatalf("cache hit returned a different decision: %+v vs %+v", d2, d1)
	}
}

func TestClassify_CacheTTLExpiry(t *testing.T) {
	f := &fakeLLM{reply: searchReply}
	c := New(f, "test-model", 10, 120*time.Second)

	now := time.Unix(5000, 0)
	c.cache.now = func() time.Time { return now }

	c.Classify(context.Background(), "price of gold per ounce", nil)
	c.Classify(context.Background(), "price of gold per ounce", nil)
	if f.count() != 1 {
		t.Fatalf("expected cached decision inside TTL, got %d calls", f.count())
	}

	now = now.Add(121 * time.Second)
	c.Classify(context.Background(), "price of gold per ounce", nil)
	if f.count() != 2 {
		t.Fatalf("expected fresh model call after TTL expiry, got %d calls", f.count())
	}
}

func TestClassify_HeuristicFallbackNotCached(t *testing.T) {
	f := &fakeLLM{err: errors.New("model down")}
	c := New(f, "test-model", 10, time.Minute)

	d := c.Classify(context.Background(), "latest champions league score", nil)
	if !d.NeedsSearch {
		t.Fatalf("heuristic should flag immediacy keywords: %+v", d)
	}
	c.Classify(context.Background(), "latest champions league score", nil)
	if f.count() != 2 {
		t.Fatalf("heuristic fallbacks must not be cached; got %d calls", f.count())
	}
}

func TestClassify_HeuristicNegative(t *testing.T) {
	f := &fakeLLM{err: errors.New("model down")}
	c := New(f, "test-model", 10, time.Minute)

	d := c.Classify(context.Background(), "write me a short poem about autumn", nil)
	if d.NeedsSearch {
		t.Fatalf("creative request should not trigger the heuristic: %+v", d)
	}
}

func TestParseDecision_ToleratesFencesAndPreamble(t *testing.T) {
	replies := []string{
		searchReply,
		"```json\n" + searchReply + "\n```",
		"Let me think about this.\nThe user wants live data.\n" + searchReply,
		"Reasoning first...\n```json\n" + searchReply + "\n```\ntrailing note",
	}
	for _, r := range replies {
		d, err := parseDecision(r)
		if err != nil {
			t.Errorf("parseDecision(%.40q) error: %v", r, err)
			continue
		}
		if !d.NeedsSearch || d.SearchQuery != "bitcoin price" {
			t.Errorf("parseDecision(%.40q) = %+v", r, d)
		}
	}
	if _, err := parseDecision("no payload here"); err == nil {
		t.Fatalf("expected error for reply without json")
	}
}

func TestClassify_EmptySearchQueryFallsBackToRaw(t *testing.T) {
	f := &fakeLLM{reply: `{"needs_search": true, "search_query": "", "reason": "x"}`}
	c := New(f, "test-model", 10, time.Minute)

	d := c.Classify(context.Background(), "Who won the election", nil)
	if d.SearchQuery != "Who won the election" {
		t.Fatalf("expected raw query as fallback search query, got %q", d.SearchQuery)
	}
}

func TestDecisionCache_EvictsOldestOnOverflow(t *testing.T) {
	cache := newDecisionCache(2, time.Minute)
	cache.put("a", Decision{Reason: "a"})
	cache.put("b", Decision{Reason: "b"})
	cache.put("c", Decision{Reason: "c"})

	if _, ok := cache.get("a"); ok {
		t.Fatalf("expected oldest entry evicted")
	}
	if _, ok := cache.get("b"); !ok {
		t.Fatalf("expected newer entry kept")
	}
	if _, ok := cache.get("c"); !ok {
		t.Fatalf("expected newest entry kept")
	}
}
