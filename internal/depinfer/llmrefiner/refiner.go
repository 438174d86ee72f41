// Package llmrefiner implements the optional LLM refinement pass: a
// structured-JSON request/response adjudication of ambiguous task
// pairs, behind this package's Refiner interface so the hybrid inferer
// never depends on a concrete provider. The genai client here is the only
// one in the module; the call itself is text generation rather than
// embedding.
package llmrefiner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"coordinator/internal/domain"
	"coordinator/internal/logging"
	"coordinator/internal/resilience"
)

// Direction is the LLM's verdict on which task depends on the other.
type Direction string

const (
	DirectionNone Direction = "none"
	Dir1to2       Direction = "1->2"
	Dir2to1       Direction = "2->1"
)

// Verdict is one element of the LLM's response array.
type Verdict struct {
	Task1ID             string                 `json:"task1_id"`
	Task2ID             string                 `json:"task2_id"`
	DependencyDirection Direction              `json:"dependency_direction"`
	Confidence          float64                `json:"confidence"`
	Reasoning           string                 `json:"reasoning"`
	DependencyType      domain.InferredDependencyType `json:"dependency_type"`
}

// Refiner is the interface the hybrid inferer consumes; exported here so
// callers can swap in a fake for tests without importing genai.
type Refiner interface {
	Refine(ctx context.Context, tasks []*domain.Task, pairs [][2]string) ([]Verdict, error)
}

// GenAIRefiner implements Refiner against Gemini via google.golang.org/genai.
type GenAIRefiner struct {
	client *genai.Client
	model  string
}

// New constructs a GenAIRefiner. model defaults to "gemini-2.0-flash"
// when empty rather than erroring on an unset model name.
func New(apiKey, model string) (*GenAIRefiner, error) {
	timer := logging.StartTimer(logging.CategoryLLMRefiner, "New")
	defer timer.Stop()

	if apiKey == "" {
		return nil, fmt.Errorf("llmrefiner: API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("llmrefiner: create genai client: %w", err)
	}
	return &GenAIRefiner{client: client, model: model}, nil
}

// Refine sends a single structured-JSON prompt covering tasks and pairs,
// and parses the response into Verdicts. The response is never
// interpreted as loose prose: an unparseable or erroring response is
// always treated as a failure.
func (r *GenAIRefiner) Refine(ctx context.Context, tasks []*domain.Task, pairs [][2]string) ([]Verdict, error) {
	timer := logging.StartTimer(logging.CategoryLLMRefiner, "Refine")
	defer timer.Stop()

	prompt := buildPrompt(tasks, pairs)

	resp, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("llmrefiner: generate content: %w", err)
	}

	text := resp.Text()
	verdicts, err := parseVerdicts(text)
	if err != nil {
		return nil, fmt.Errorf("llmrefiner: parse response: %w", err)
	}
	return verdicts, nil
}

func buildPrompt(tasks []*domain.Task, pairs [][2]string) string {
	var b strings.Builder
	b.WriteString("You are adjudicating task dependencies for a software project. ")
	b.WriteString("For each pair, decide whether task1 depends on task2, task2 depends on task1, or neither. ")
	b.WriteString("Respond with a JSON array only, each element shaped as ")
	b.WriteString(`{"task1_id":"...","task2_id":"...","dependency_direction":"1->2"|"2->1"|"none","confidence":0-1,"reasoning":"...","dependency_type":"hard"|"soft"|"logical"}.`)
	b.WriteString("\n\nTasks:\n")
	byID := make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		b.WriteString(fmt.Sprintf("- %s: %s (%s) [%s]\n", t.ID, t.Name, t.Status, strings.Join(t.Labels, ",")))
	}
	b.WriteString("\nPairs to adjudicate:\n")
	for _, p := range pairs {
		b.WriteString(fmt.Sprintf("- %s, %s\n", p[0], p[1]))
	}
	return b.String()
}

// parseVerdicts extracts the JSON array from the response text, tolerant
// of a fenced code block (```json ... ```) the model might wrap it in,
// but never attempting any looser prose interpretation.
func parseVerdicts(text string) ([]Verdict, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var verdicts []Verdict
	if err := json.Unmarshal([]byte(text), &verdicts); err != nil {
		return nil, err
	}
	return verdicts, nil
}

// RetryingRefiner wraps a Refiner with retry primitive, so a
// transient API failure (RemoteTransient) is retried with jittered
// backoff before surfacing as RemoteUnavailable to the caller.
type RetryingRefiner struct {
	inner Refiner
	cfg   resilience.RetryConfig
}

// NewRetrying wraps inner with cfg's retry behavior.
func NewRetrying(inner Refiner, cfg resilience.RetryConfig) *RetryingRefiner {
	return &RetryingRefiner{inner: inner, cfg: cfg}
}

func (r *RetryingRefiner) Refine(ctx context.Context, tasks []*domain.Task, pairs [][2]string) ([]Verdict, error) {
	var verdicts []Verdict
	err := resilience.Retry(ctx, r.cfg, func(ctx context.Context) error {
		v, err := r.inner.Refine(ctx, tasks, pairs)
		if err != nil {
			return err
		}
		verdicts = v
		return nil
	})
	if err != nil {
		return nil, &resilience.ErrRemoteUnavailable{Target: "llm-refiner", Err: err}
	}
	return verdicts, nil
}

// cacheEntry holds a cached refinement keyed by a pair-set fingerprint.
type cacheEntry struct {
	verdicts []Verdict
	expires  time.Time
}

// Cache is a TTL cache of LLM results keyed by a stable fingerprint of
// the pair set: callers build the key from
// sorted pair ids, not call order.
type Cache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache returns a Cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

// Key builds a stable fingerprint for a pair set: sort pairs, sort each
// pair's ids, join.
func Key(pairs [][2]string) string {
	normalized := make([]string, 0, len(pairs))
	for _, p := range pairs {
		a, b := p[0], p[1]
		if a > b {
			a, b = b, a
		}
		normalized = append(normalized, a+"|"+b)
	}
	sortStrings(normalized)
	return strings.Join(normalized, ";")
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Get returns the cached verdicts for key if present and not expired.
func (c *Cache) Get(key string) ([]Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return e.verdicts, true
}

// Put stores verdicts under key with the cache's TTL. A failed
// refinement is never cached — callers only call Put on success.
func (c *Cache) Put(key string, verdicts []Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{verdicts: verdicts, expires: time.Now().Add(c.ttl)}
}
