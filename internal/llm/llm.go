// Package llm is the uniform boundary to chat-completion providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// ErrMissingCredentials is returned when a provider is configured without an API key.
var ErrMissingCredentials = errors.New("missing LLM credentials")

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string
	Content string
}

// Request is a provider-neutral chat request.
type Request struct {
	Model           string
	Messages        []Message
	ReasoningEffort Effort
	Temperature     float32
	MaxTokens       int
}

// Usage is token accounting reported by the provider.
type Usage struct {
	Input  int
	Output int
	Total  int
}

// Response is a provider-neutral chat response.
type Response struct {
	Text    string
	Model   string
	Usage   Usage
	Latency time.Duration
}

// Gateway sends chat requests to a provider.
type Gateway interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Config holds gateway configuration. It is built once at startup and
// injected into every component that talks to a provider.
type Config struct {
	Provider   string // openai or anthropic
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RateLimit  float64 // requests per second, 0 disables limiting
}

// Defaults applied when a Config field is zero.
const (
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 3
)

// New creates the gateway for cfg.Provider.
func New(cfg Config) (Gateway, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAI(cfg)
	case "anthropic":
		return NewAnthropic(cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(math.Ceil(rps))
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// retrier runs an operation with exponential backoff on retryable errors.
type retrier struct {
	maxRetries int
	backoff    time.Duration
	limiter    *rate.Limiter
	retryable  func(error) bool
}

// do calls fn up to maxRetries+1 times. Only errors accepted by retryable are
// retried; anything else is returned immediately.
func (r *retrier) do(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.retryable(err) || attempt == r.maxRetries {
			break
		}

		wait := r.backoff * time.Duration(math.Pow(2, float64(attempt)))
		slog.Debug("llm request failed, retrying",
			"attempt", attempt+1,
			"wait_time", wait,
			"error", err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// retryableStatus reports whether an HTTP status is a transient server error.
func retryableStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	}
	return false
}

func logUsage(provider string, resp *Response) {
	slog.Debug("llm completion",
		"provider", provider,
		"model", resp.Model,
		"input_tokens", resp.Usage.Input,
		"output_tokens", resp.Usage.Output,
		"total_tokens", resp.Usage.Total,
		"latency", resp.Latency)
}
