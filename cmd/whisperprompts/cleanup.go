package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/paultaki/whisperprompts/internal/pipeline"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Retire invalid and low-scoring prompts",
	Long: `Re-validate and re-score every active prompt and move the ones that
fail into prompt history.`,
	RunE: runCleanup,
}

var cleanupMinScore int

func init() {
	cleanupCmd.Flags().IntVar(&cleanupMinScore, "min-score", 0, "retire prompts scoring below this (default: CLEANUP_MIN_SCORE)")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	minScore := a.Config.CleanupMinScore
	if cleanupMinScore > 0 {
		minScore = cleanupMinScore
	}

	res, err := pipeline.Cleanup(ctx, a.Store, minScore, time.Now())
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	fmt.Printf("Checked:            %d\n", res.Checked)
	fmt.Printf("Retired (invalid):  %d\n", res.RetiredInvalid)
	fmt.Printf("Retired (score):    %d\n", res.RetiredLowScore)
	fmt.Printf("Failed:             %d\n", res.Failed)
	return nil
}
