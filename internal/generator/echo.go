// Package generator turns stories into follow-up prompts: the instant echo
// question, per-story template prompts and milestone analysis.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/paultaki/whisperprompts/internal/llm"
	"github.com/paultaki/whisperprompts/internal/model"
	"github.com/paultaki/whisperprompts/internal/quality"
	"github.com/paultaki/whisperprompts/internal/sanitize"
)

const (
	echoContextWords = 300
	echoMaxChars     = 150
	echoMaxTokens    = 80
	echoTemperature  = 0.7
)

// Echo produces one instant follow-up question after a story is saved.
type Echo struct {
	gateway  llm.Gateway
	selector llm.Selector
	Now      func() time.Time
}

// NewEcho creates an echo generator.
func NewEcho(gateway llm.Gateway, selector llm.Selector) *Echo {
	return &Echo{gateway: gateway, selector: selector, Now: time.Now}
}

// Generate returns a validated echo prompt, or nil when the model produced
// nothing usable. Only gateway failures are returned as errors.
func (e *Echo) Generate(ctx context.Context, transcript string) (*model.Prompt, error) {
	excerpt := lastWords(sanitize.Sanitize(transcript), echoContextWords)
	if excerpt == "" {
		return nil, nil
	}

	sel := e.selector.Select(llm.StageEcho, 0)
	resp, err := e.gateway.Complete(ctx, llm.Request{
		Model: sel.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: EchoSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf(EchoUserPrompt, excerpt)},
		},
		ReasoningEffort: sel.ReasoningEffort,
		Temperature:     echoTemperature,
		MaxTokens:       echoMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("echo completion: %w", err)
	}

	text := cleanQuestion(resp.Text)
	if text == "" {
		slog.Debug("echo empty response")
		return nil, nil
	}
	if utf8.RuneCountInString(text) > echoMaxChars {
		slog.Debug("echo too long", "chars", utf8.RuneCountInString(text))
		return nil, nil
	}
	if v := quality.Check(text); !v.Valid {
		slog.Debug("echo rejected", "prompt", text, "reason", v.Reason, "match", v.Match)
		return nil, nil
	}

	now := e.Now()
	return &model.Prompt{
		ID:           model.NewPromptID(),
		PromptText:   text,
		Tier:         model.TierEcho,
		MemoryType:   model.MemoryEcho,
		AnchorEntity: text,
		AnchorHash:   model.AnchorHash(string(model.MemoryEcho), text, nil),
		ContextNote:  "echo of latest story",
		Score:        quality.Score(text, nil),
		ModelVersion: resp.Model,
		CreatedAt:    now,
	}, nil
}

// lastWords returns the trailing n whitespace-separated words of s.
func lastWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

// cleanQuestion trims model chatter around a single question: surrounding
// quotes and anything after the first line.
func cleanQuestion(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.Trim(s, `"“”'`)
	return strings.TrimSpace(s)
}
