package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIGateway talks to any OpenAI-compatible chat completions endpoint.
type OpenAIGateway struct {
	client *openai.Client
	retry  *retrier
}

// NewOpenAI creates an OpenAI-compatible gateway.
func NewOpenAI(cfg Config) (*OpenAIGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY: %w", ErrMissingCredentials)
	}
	cfg = cfg.withDefaults()

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIGateway{
		client: openai.NewClientWithConfig(clientConfig),
		retry: &retrier{
			maxRetries: cfg.MaxRetries,
			backoff:    time.Second,
			limiter:    newLimiter(cfg.RateLimit),
			retryable:  openAIRetryable,
		},
	}, nil
}

// Complete performs a chat completion.
func (g *OpenAIGateway) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	ccr := openai.ChatCompletionRequest{
		Model:               req.Model,
		Messages:            messages,
		MaxCompletionTokens: req.MaxTokens,
		ReasoningEffort:     string(req.ReasoningEffort),
	}
	// Reasoning models reject any temperature other than the default.
	if !isReasoningModel(req.Model) {
		ccr.Temperature = req.Temperature
	}

	var resp openai.ChatCompletionResponse
	start := time.Now()
	err := g.retry.do(ctx, func() error {
		var err error
		resp, err = g.client.CreateChatCompletion(ctx, ccr)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty chat response")
	}

	out := &Response{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: Usage{
			Input:  resp.Usage.PromptTokens,
			Output: resp.Usage.CompletionTokens,
			Total:  resp.Usage.TotalTokens,
		},
		Latency: time.Since(start),
	}
	if out.Model == "" {
		out.Model = req.Model
	}
	logUsage("openai", out)
	return out, nil
}

func openAIRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return false
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}
