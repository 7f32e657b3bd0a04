package intent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goscout/internal/llm"
)

// Decision is the classifier's verdict for one user turn. It is owned by the
// caller once returned and never mutated afterward.
type Decision struct {
	NeedsSearch bool   `json:"needs_search"`
	SearchQuery string `json:"search_query"`
	Reason      string `json:"reason"`
}

// Message is one conversation turn passed in as classification context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const systemPrompt = "You are a Search Intent Classifier. Your job is to determine if the user's " +
	"latest message requires real-time external information from the web to be answered correctly.\n" +
	"Respond ONLY with a JSON object in this format:\n" +
	"{\n" +
	"  \"needs_search\": true/false,\n" +
	"  \"search_query\": \"optimized keyword query for search engine\",\n" +
	"  \"reason\": \"brief explanation\"\n" +
	"}\n" +
	"Rules:\n" +
	"1. If the user asks for current events, prices, news, or specific facts not in your training data -> needs_search: true.\n" +
	"2. If the user asks for coding help, creative writing, summarization of chat, or general knowledge -> needs_search: false.\n" +
	"3. If the user explicitly asks to 'search' or 'find' -> needs_search: true.\n" +
	"4. Keep the search_query concise (2-5 keywords)."

const (
	defaultCallTimeout = 5 * time.Second
	defaultCacheSize   = 1000
	defaultCacheTTL    = 120 * time.Second

	// documentMarker prefixes turns that carry pasted document text; those
	// never need retrieval.
	documentMarker = "[document]"
	// maxClassifiableLen: anything longer is almost certainly pasted or OCR
	// text, not a question.
	maxClassifiableLen = 1500
	// historyWindow is how many trailing conversation turns go to the model.
	historyWindow = 4
)

var greetings = map[string]bool{
	"hi": true, "hello": true, "hey": true, "test": true,
	"thanks": true, "thank you": true, "ok": true, "yo": true,
}

var explicitSearchPhrases = []string{"search for", "look up", "google"}

// heuristicTriggers are keyword families used when the model call fails:
// immediacy/price/news, temporal markers, comparison phrasing, and factual
// question forms.
var heuristicTriggers = []string{
	"price", "cost", "stock", "news", "latest", "current", "weather", "release",
	"today", "tonight", "yesterday", "this week", "this year", "right now",
	" vs ", "versus", "compare", "comparison", "better than",
	"who is", "who won", "what is the", "when did", "when is", "where is",
	"how much", "how many",
	"search", "find", "look up",
}

// Classifier decides per user turn whether retrieval is needed and what
// query to issue. Model-derived decisions are cached; heuristic fallbacks
// are cheap to recompute and are not.
type Classifier struct {
	Client llm.Client
	Model  string
	// CallTimeout bounds the classification call. Zero means default (5s).
	CallTimeout time.Duration

	cache *decisionCache
}

// New returns a classifier with a bounded decision cache. Zero values for
// cacheSize and ttl select the defaults (1000 entries, 120s).
func New(client llm.Client, model string, cacheSize int, ttl time.Duration) *Classifier {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Classifier{Client: client, Model: model, cache: newDecisionCache(cacheSize, ttl)}
}

// Classify analyzes query against recent history. It never returns an error:
// model and parse failures degrade to a deterministic keyword heuristic.
func (c *Classifier) Classify(ctx context.Context, query string, history []Message) Decision {
	trimmed := strings.TrimSpace(query)
	lower := strings.ToLower(trimmed)

	if strings.HasPrefix(lower, documentMarker) {
		return Decision{Reason: "document content"}
	}
	if len(trimmed) > maxClassifiableLen {
		return Decision{Reason: "pasted text"}
	}
	if len(strings.Fields(lower)) < 3 && greetings[lower] {
		return Decision{Reason: "greeting"}
	}
	for _, phrase := range explicitSearchPhrases {
		if strings.Contains(lower, phrase) {
			return Decision{NeedsSearch: true, SearchQuery: trimmed, Reason: "explicit search request"}
		}
	}

	// Cache key deliberately ignores history: identical query text in a
	// different conversation reuses the earlier decision within the TTL.
	key := lower
	if d, ok := c.cache.get(key); ok {
		return d
	}

	d, err := c.callModel(ctx, trimmed, history)
	if err != nil {
		log.Warn().Err(err).Msg("intent classification failed, using heuristic")
		return c.heuristic(trimmed)
	}
	c.cache.put(key, d)
	return d
}

func (c *Classifier) callModel(ctx context.Context, query string, history []Message) (Decision, error) {
	if c.Client == nil || c.Model == "" {
		return Decision{}, errors.New("classifier not configured")
	}
	timeout := c.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, historyWindow+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	if n := len(history); n > 0 {
		start := n - historyWindow
		if start < 0 {
			start = 0
		}
		for _, m := range history[start:] {
			messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
		}
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: query})

	resp, err := c.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: 0,
		MaxTokens:   150,
	})
	if err != nil {
		return Decision{}, err
	}
	if len(resp.Choices) == 0 {
		return Decision{}, errors.New("no choices")
	}
	d, err := parseDecision(resp.Choices[0].Message.Content)
	if err != nil {
		return Decision{}, err
	}
	if d.NeedsSearch && strings.TrimSpace(d.SearchQuery) == "" {
		d.SearchQuery = query
	}
	return d, nil
}

// parseDecision extracts the structured verdict from a model reply,
// tolerating markdown code fences and free-form reasoning text before the
// JSON payload.
func parseDecision(content string) (Decision, error) {
	s := strings.ReplaceAll(content, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return Decision{}, errors.New("no json payload in reply")
	}
	var d Decision
	if err := json.Unmarshal([]byte(s[start:end+1]), &d); err != nil {
		return Decision{}, err
	}
	return d, nil
}

func (c *Classifier) heuristic(query string) Decision {
	lower := strings.ToLower(query)
	for _, t := range heuristicTriggers {
		if strings.Contains(lower, t) {
			return Decision{NeedsSearch: true, SearchQuery: query, Reason: "heuristic fallback"}
		}
	}
	return Decision{Reason: "heuristic fallback"}
}
