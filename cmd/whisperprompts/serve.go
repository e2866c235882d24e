package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the generation worker",
	Long: `Run the worker that drains queued story and milestone jobs and
periodically retires prompts that no longer pass the quality gate.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Config.ValidateForServe(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if err := a.InitGeneration(); err != nil {
		return err
	}

	slog.Info("starting worker",
		"interval", a.Config.WorkerInterval,
		"batch_size", a.Config.WorkerBatchSize,
		"cleanup_interval", a.Config.CleanupInterval,
		"index", a.Index != nil,
	)

	w := a.NewWorker()

	// Run worker in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(ctx)
	}()

	// Wait for shutdown signal or error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			return fmt.Errorf("worker error: %w", err)
		}
	}

	slog.Info("shutting down...")
	cancel()

	return nil
}
