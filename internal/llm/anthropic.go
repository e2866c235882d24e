package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
	defaultMaxTokens    = 2048
)

// AnthropicGateway calls the Anthropic Messages API directly.
type AnthropicGateway struct {
	apiKey     string
	url        string
	httpClient *http.Client
	retry      *retrier
}

// NewAnthropic creates an Anthropic gateway. cfg.BaseURL, when set,
// replaces the messages endpoint.
func NewAnthropic(cfg Config) (*AnthropicGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY: %w", ErrMissingCredentials)
	}
	cfg = cfg.withDefaults()

	url := anthropicAPIURL
	if cfg.BaseURL != "" {
		url = cfg.BaseURL
	}

	return &AnthropicGateway{
		apiKey: cfg.APIKey,
		url:    url,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retry: &retrier{
			maxRetries: cfg.MaxRetries,
			backoff:    time.Second,
			limiter:    newLimiter(cfg.RateLimit),
			retryable:  anthropicRetryable,
		},
	}, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature *float32           `json:"temperature,omitempty"`
	Thinking    *anthropicThinking `json:"thinking,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

// thinkingBudgets maps reasoning effort to an extended-thinking budget.
// The API minimum is 1024.
var thinkingBudgets = map[Effort]int{
	EffortLow:    1024,
	EffortMedium: 4096,
	EffortHigh:   8192,
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// statusError is a non-200 provider response.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

func anthropicRetryable(err error) bool {
	var se *statusError
	return errors.As(err, &se) && retryableStatus(se.StatusCode)
}

// Complete sends a messages request. System messages are folded into the
// top-level system field.
func (g *AnthropicGateway) Complete(ctx context.Context, req Request) (*Response, error) {
	areq := anthropicRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
	}
	if areq.MaxTokens <= 0 {
		areq.MaxTokens = defaultMaxTokens
	}
	if budget, ok := thinkingBudgets[req.ReasoningEffort]; ok {
		// The budget counts against max_tokens and thinking requires the
		// default temperature.
		areq.Thinking = &anthropicThinking{Type: "enabled", BudgetTokens: budget}
		areq.MaxTokens += budget
		slog.Debug("anthropic extended thinking",
			"model", req.Model,
			"effort", req.ReasoningEffort,
			"budget_tokens", budget)
	} else if req.Temperature > 0 {
		temp := req.Temperature
		areq.Temperature = &temp
	}

	var system []string
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		areq.Messages = append(areq.Messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	areq.System = strings.Join(system, "\n\n")

	body, err := json.Marshal(areq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var parsed anthropicResponse
	start := time.Now()
	err = g.retry.do(ctx, func() error {
		respBody, err := g.send(ctx, body)
		if err != nil {
			return err
		}
		parsed = anthropicResponse{}
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	if parsed.Error != nil {
		return nil, fmt.Errorf("API error: %s - %s", parsed.Error.Type, parsed.Error.Message)
	}
	// Thinking blocks precede the answer and are not part of it.
	var text []string
	for _, c := range parsed.Content {
		if c.Type == "text" || c.Type == "" {
			text = append(text, c.Text)
		}
	}
	if len(text) == 0 {
		return nil, fmt.Errorf("empty response from API")
	}

	out := &Response{
		Text:  strings.Join(text, ""),
		Model: parsed.Model,
		Usage: Usage{
			Input:  parsed.Usage.InputTokens,
			Output: parsed.Usage.OutputTokens,
			Total:  parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
		Latency: time.Since(start),
	}
	if out.Model == "" {
		out.Model = req.Model
	}
	logUsage("anthropic", out)
	return out, nil
}

func (g *AnthropicGateway) send(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", g.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
