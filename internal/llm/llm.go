// Package llm talks to hosted language models and turns their answers into
// change assessments.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Provider names a hosted model vendor.
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Default models per provider, used when none is configured.
var defaultModels = map[Provider]string{
	ProviderGoogle:    "gemini-2.5-flash",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-sonnet-4-20250514",
}

const (
	temperature     = 0.1
	maxOutputTokens = 1024
	defaultTimeout  = 30 * time.Second
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// Response is a completed model answer.
type Response struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
}

// Completer is implemented by every provider client.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (*Response, error)
	Provider() Provider
	Model() string
}

// APIError is a non-200 answer from a provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Body)
}

// Retryable reports whether repeating the request may succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ParseProvider validates a configured provider name.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := defaultModels[p]; !ok {
		return "", fmt.Errorf("unknown LLM provider %q (want google, openai or anthropic)", s)
	}
	return p, nil
}

// NewCompleter builds the client for provider. An empty model selects the
// provider default.
func NewCompleter(provider Provider, apiKey, model string, timeout time.Duration) (Completer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key required", provider)
	}
	if model == "" {
		model = defaultModels[provider]
	}
	httpClient := &http.Client{Timeout: timeout}

	switch provider {
	case ProviderGoogle:
		c := NewGoogleClient(apiKey, model)
		c.httpClient = httpClient
		return c, nil
	case ProviderOpenAI:
		c := NewOpenAIClient(apiKey, model)
		c.httpClient = httpClient
		return c, nil
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey, model, timeout), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
