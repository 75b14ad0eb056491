// Package llm talks to the text generation service and turns its replies
// into triage results and composed emails.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Client is the unified interface for LLM providers
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single system + user turn
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// APIError represents an HTTP error from the LLM provider
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("LLM API error (status %d): %s", e.StatusCode, e.Body)
}

// IsRateLimit returns true if this is a rate limit error
func (e *APIError) IsRateLimit() bool { return e.StatusCode == http.StatusTooManyRequests }

// IsAuth returns true if the key was rejected
func (e *APIError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 90 * time.Second}
}

// New returns the client for provider ("openai" or "anthropic")
func New(provider, apiKey, baseURL string) (Client, error) {
	switch provider {
	case "openai":
		return NewOpenAIClient(apiKey, baseURL), nil
	case "anthropic":
		return NewAnthropicClient(apiKey, baseURL), nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q", provider)
}
