package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/paultaki/whisperprompts/internal/app"
	"github.com/paultaki/whisperprompts/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "whisperprompts",
	Short: "Memory prompt generation for recorded life stories",
	Long: `WhisperPrompts turns recorded stories into short follow-up questions
that help a storyteller remember more, and retires the ones that go stale.`,
}

func init() {
	// Load .env file if present
	_ = godotenv.Load()

	// Set up logging
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// openApp loads configuration and opens a migrated database.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return app.New(ctx, cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
