package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Database
	DatabasePath string

	// LLM gateway
	LLMProvider     string // "openai" or "anthropic" (default: openai)
	OpenAIAPIKey    string
	AnthropicAPIKey string
	LLMBaseURL      string // OpenAI-compatible gateway base URL (optional)
	LLMTimeout      time.Duration
	LLMMaxRetries   int
	LLMRateLimit    float64 // requests per second, 0 = unlimited

	// Model selection
	FastModel       string
	PremiumModel    string
	UsePremiumTier3 bool
	UseDeepInsights bool

	// Near-duplicate index
	VecLitePath        string // empty disables the index
	EmbedProvider      string // "ollama" or "openai" (default: ollama)
	EmbedModel         string
	OllamaHost         string
	DuplicateThreshold float64

	// Logging
	LogLevel string

	// Worker settings
	WorkerInterval  time.Duration
	WorkerBatchSize int
	CleanupInterval time.Duration // 0 disables periodic cleanup
	CleanupMinScore int
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:    getEnv("DATABASE_PATH", "data/whisperprompts.db"),
		LLMProvider:     getEnv("LLM_PROVIDER", "openai"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		LLMBaseURL:      getEnv("LLM_BASE_URL", ""),
		FastModel:       getEnv("FAST_MODEL", "gpt-4o-mini"),
		PremiumModel:    getEnv("PREMIUM_MODEL", "gpt-5"),
		VecLitePath:     getEnv("VECLITE_PATH", ""),
		EmbedProvider:   getEnv("EMBED_PROVIDER", "ollama"),
		EmbedModel:      getEnv("EMBED_MODEL", ""),
		OllamaHost:      normalizeOllamaHost(getEnv("OLLAMA_HOST", "http://localhost:11434")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	// Parse durations
	var err error
	cfg.LLMTimeout, err = time.ParseDuration(getEnv("LLM_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TIMEOUT: %w", err)
	}

	cfg.WorkerInterval, err = time.ParseDuration(getEnv("WORKER_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_INTERVAL: %w", err)
	}

	cfg.CleanupInterval, err = time.ParseDuration(getEnv("CLEANUP_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLEANUP_INTERVAL: %w", err)
	}

	// Parse integers
	if cfg.LLMMaxRetries, err = strconv.Atoi(getEnv("LLM_MAX_RETRIES", "3")); err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}
	if cfg.WorkerBatchSize, err = strconv.Atoi(getEnv("WORKER_BATCH_SIZE", "10")); err != nil {
		return nil, fmt.Errorf("invalid WORKER_BATCH_SIZE: %w", err)
	}
	if cfg.CleanupMinScore, err = strconv.Atoi(getEnv("CLEANUP_MIN_SCORE", "30")); err != nil {
		return nil, fmt.Errorf("invalid CLEANUP_MIN_SCORE: %w", err)
	}

	// Parse floats
	if cfg.LLMRateLimit, err = strconv.ParseFloat(getEnv("LLM_RATE_LIMIT", "0"), 64); err != nil {
		return nil, fmt.Errorf("invalid LLM_RATE_LIMIT: %w", err)
	}
	if cfg.DuplicateThreshold, err = strconv.ParseFloat(getEnv("DUPLICATE_THRESHOLD", "0.92"), 64); err != nil {
		return nil, fmt.Errorf("invalid DUPLICATE_THRESHOLD: %w", err)
	}

	// Parse booleans
	if cfg.UsePremiumTier3, err = strconv.ParseBool(getEnv("USE_PREMIUM_TIER3", "false")); err != nil {
		return nil, fmt.Errorf("invalid USE_PREMIUM_TIER3: %w", err)
	}
	if cfg.UseDeepInsights, err = strconv.ParseBool(getEnv("USE_DEEP_INSIGHTS", "false")); err != nil {
		return nil, fmt.Errorf("invalid USE_DEEP_INSIGHTS: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	return nil
}

// ValidateForGeneration checks configuration needed to call the LLM gateway.
func (c *Config) ValidateForGeneration() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.LLMProvider {
	case "openai", "":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER is openai")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER is anthropic")
		}
	default:
		return fmt.Errorf("invalid LLM_PROVIDER: %s (must be 'openai' or 'anthropic')", c.LLMProvider)
	}
	if c.FastModel == "" {
		return fmt.Errorf("FAST_MODEL is required")
	}
	if c.UsePremiumTier3 || c.UseDeepInsights {
		if c.PremiumModel == "" {
			return fmt.Errorf("PREMIUM_MODEL is required when premium stages are enabled")
		}
	}
	return nil
}

// IndexEnabled reports whether the near-duplicate index is configured.
func (c *Config) IndexEnabled() bool {
	return c.VecLitePath != ""
}

// ValidateForIndex checks configuration needed for the near-duplicate index.
func (c *Config) ValidateForIndex() error {
	if !c.IndexEnabled() {
		return nil
	}
	if c.DuplicateThreshold <= 0 || c.DuplicateThreshold > 1 {
		return fmt.Errorf("DUPLICATE_THRESHOLD must be in (0, 1], got %v", c.DuplicateThreshold)
	}
	switch c.EmbedProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when EMBED_PROVIDER is openai")
		}
	case "ollama", "":
		if c.OllamaHost == "" {
			return fmt.Errorf("OLLAMA_HOST is required for embedding")
		}
	default:
		return fmt.Errorf("invalid EMBED_PROVIDER: %s (must be 'ollama' or 'openai')", c.EmbedProvider)
	}
	return nil
}

// ValidateForServe checks all configuration needed for the worker.
func (c *Config) ValidateForServe() error {
	if err := c.ValidateForGeneration(); err != nil {
		return err
	}
	if c.WorkerInterval <= 0 {
		return fmt.Errorf("WORKER_INTERVAL must be positive")
	}
	if c.WorkerBatchSize <= 0 {
		return fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	return c.ValidateForIndex()
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// normalizeOllamaHost ensures the Ollama host has a proper URL scheme.
// OLLAMA_HOST is often a server bind address like "0.0.0.0" rather than a
// client URL.
func normalizeOllamaHost(host string) string {
	if host == "" || host == "0.0.0.0" || host == "0.0.0.0:11434" {
		return "http://localhost:11434"
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		return "http://" + host
	}
	return host
}
