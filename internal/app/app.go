// Package app wires configuration, storage, the LLM gateway and the
// generators into one container shared by the CLI commands.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paultaki/whisperprompts/internal/config"
	"github.com/paultaki/whisperprompts/internal/db"
	"github.com/paultaki/whisperprompts/internal/embedder"
	"github.com/paultaki/whisperprompts/internal/generator"
	"github.com/paultaki/whisperprompts/internal/llm"
	"github.com/paultaki/whisperprompts/internal/pipeline"
	"github.com/paultaki/whisperprompts/internal/vectorstore"
	"github.com/paultaki/whisperprompts/internal/worker"
)

const pingTimeout = 10 * time.Second

// App is the main application container holding all dependencies.
type App struct {
	Config     *config.Config
	Store      *db.Store
	Dispatcher *pipeline.Dispatcher

	// Set by InitGeneration.
	Gateway  llm.Gateway
	Selector llm.Selector
	Index    *vectorstore.PromptIndex // nil when the index is disabled
	Runner   *pipeline.Runner
}

// New opens and migrates the database.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	slog.Debug("connecting to database", "path", cfg.DatabasePath)
	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &App{
		Config:     cfg,
		Store:      store,
		Dispatcher: pipeline.NewDispatcher(store),
	}, nil
}

// SelectorFromConfig builds the model selector for cfg.
func SelectorFromConfig(cfg *config.Config) llm.Selector {
	return llm.Selector{
		FastModel:    cfg.FastModel,
		PremiumModel: cfg.PremiumModel,
		PremiumTier3: cfg.UsePremiumTier3,
		DeepInsights: cfg.UseDeepInsights,
	}
}

// GatewayConfig builds the gateway configuration for cfg.
func GatewayConfig(cfg *config.Config) llm.Config {
	key := cfg.OpenAIAPIKey
	if cfg.LLMProvider == "anthropic" {
		key = cfg.AnthropicAPIKey
	}
	return llm.Config{
		Provider:   cfg.LLMProvider,
		APIKey:     key,
		BaseURL:    cfg.LLMBaseURL,
		Timeout:    cfg.LLMTimeout,
		MaxRetries: cfg.LLMMaxRetries,
		RateLimit:  cfg.LLMRateLimit,
	}
}

// InitGeneration creates the gateway, the optional near-duplicate index and
// the runner. Credential problems fail here rather than on first use.
func (a *App) InitGeneration() error {
	if err := a.Config.ValidateForGeneration(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	gw, err := llm.New(GatewayConfig(a.Config))
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	return a.InitGenerationWith(gw)
}

// InitGenerationWith is InitGeneration with a caller-supplied gateway.
func (a *App) InitGenerationWith(gw llm.Gateway) error {
	a.Gateway = gw
	a.Selector = SelectorFromConfig(a.Config)

	var index pipeline.Index
	if a.Config.IndexEnabled() {
		ix, err := a.OpenIndex()
		if err != nil {
			// The index only removes near-duplicates; generation still works without it.
			slog.Error("prompt index unavailable, continuing without it", "error", err)
		} else {
			a.Index = ix
			index = ix
			slog.Info("prompt index opened", "path", a.Config.VecLitePath, "prompts", ix.Count())
		}
	}

	a.Runner = pipeline.NewRunner(pipeline.RunnerConfig{
		Store:    a.Store,
		Echo:     generator.NewEcho(gw, a.Selector),
		Tier1:    generator.NewTier1(),
		Analyzer: generator.NewAnalyzer(gw, a.Selector),
		Index:    index,
	})

	slog.Debug("generation ready",
		"provider", a.Config.LLMProvider,
		"fast_model", a.Selector.FastModel,
		"premium_tier3", a.Selector.PremiumTier3,
		"deep_insights", a.Selector.DeepInsights)
	return nil
}

// OpenIndex opens the near-duplicate prompt index described by the config.
func (a *App) OpenIndex() (*vectorstore.PromptIndex, error) {
	if err := a.Config.ValidateForIndex(); err != nil {
		return nil, err
	}
	emb, err := embedder.New(embedder.Config{
		Provider: a.Config.EmbedProvider,
		Host:     a.Config.OllamaHost,
		APIKey:   a.Config.OpenAIAPIKey,
		BaseURL:  a.Config.LLMBaseURL,
		Model:    a.Config.EmbedModel,
	})
	if err != nil {
		return nil, err
	}
	if p, ok := emb.(embedder.Pinger); ok {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			return nil, err
		}
	}
	return vectorstore.New(vectorstore.Config{
		Path:      a.Config.VecLitePath,
		Threshold: float32(a.Config.DuplicateThreshold),
	}, emb)
}

// NewWorker creates the background worker. InitGeneration must have run.
func (a *App) NewWorker() *worker.Worker {
	return worker.New(worker.Config{
		Store:           a.Store,
		Runner:          a.Runner,
		Interval:        a.Config.WorkerInterval,
		BatchSize:       a.Config.WorkerBatchSize,
		CleanupInterval: a.Config.CleanupInterval,
		CleanupMinScore: a.Config.CleanupMinScore,
	})
}

// Close closes all resources.
func (a *App) Close() error {
	if a.Index != nil {
		if err := a.Index.Close(); err != nil {
			slog.Warn("failed to close prompt index", "error", err)
		}
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
