// Package embedder turns prompt text into vectors for near-duplicate checks.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaModel = "nomic-embed-text"
	defaultTimeout     = 60 * time.Second
)

// Embedder produces an embedding for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Pinger is implemented by embedders that can check their backend before
// the first prompt is indexed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds configuration for the embedder.
type Config struct {
	Provider string // "ollama" or "openai"
	Host     string // Ollama host
	APIKey   string // OpenAI key
	BaseURL  string // OpenAI-compatible base URL (optional)
	Model    string
}

// New returns the embedder for cfg.Provider.
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllama(cfg), nil
	case "openai":
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unknown embed provider: %s", cfg.Provider)
	}
}

// Ollama embeds prompt text with a model served by a local Ollama.
type Ollama struct {
	base   string
	model  string
	client *http.Client
}

// NewOllama creates an Ollama embedder. The model defaults to
// nomic-embed-text.
func NewOllama(cfg Config) *Ollama {
	o := &Ollama{
		base:   strings.TrimRight(cfg.Host, "/"),
		model:  cfg.Model,
		client: &http.Client{Timeout: defaultTimeout},
	}
	if o.model == "" {
		o.model = defaultOllamaModel
	}
	return o
}

// embedRequest and embedResponse follow POST /api/embed, which accepts a
// batch; prompts are sent one at a time.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Embed returns the vector for one prompt.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	var out embedResponse
	if err := o.call(ctx, http.MethodPost, "/api/embed", embedRequest{Model: o.model, Input: []string{text}}, &out); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(out.Embeddings) == 0 || len(out.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama embed: empty embedding for model %s", o.model)
	}
	return out.Embeddings[0], nil
}

// Ping fails when Ollama is unreachable or the model has not been pulled.
func (o *Ollama) Ping(ctx context.Context) error {
	var tags tagsResponse
	if err := o.call(ctx, http.MethodGet, "/api/tags", nil, &tags); err != nil {
		return fmt.Errorf("ollama ping: %w", err)
	}

	for _, m := range tags.Models {
		name, _, _ := strings.Cut(m.Name, ":")
		if m.Name == o.model || name == o.model {
			slog.Debug("embedding model available", "model", m.Name)
			return nil
		}
	}
	return fmt.Errorf("ollama ping: model %s is not pulled (ollama pull %s)", o.model, o.model)
}

// call sends in as JSON (when non-nil) and decodes a 200 response into out.
func (o *Ollama) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, o.base+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
