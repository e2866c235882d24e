package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var milestoneCmd = &cobra.Command{
	Use:   "milestone <user-id>",
	Short: "Run milestone analysis for a storyteller",
	Long: `Analyze a storyteller's stories as a whole and save the resulting
Tier-3 prompts and character insights. With --queue the analysis is
handed to the worker instead of running now.`,
	Args: cobra.ExactArgs(1),
	RunE: runMilestone,
}

var (
	milestoneCount int
	milestoneQueue bool
)

func init() {
	milestoneCmd.Flags().IntVar(&milestoneCount, "count", 0, "story count to analyze (default: all stories)")
	milestoneCmd.Flags().BoolVar(&milestoneQueue, "queue", false, "queue the analysis instead of running it")
	rootCmd.AddCommand(milestoneCmd)
}

func runMilestone(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	userID := args[0]

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	count := milestoneCount
	if count == 0 {
		if count, err = a.Store.CountStoriesByUser(ctx, userID); err != nil {
			return fmt.Errorf("count stories: %w", err)
		}
	}

	if milestoneQueue {
		j, err := a.Dispatcher.EnqueueMilestone(ctx, userID, count)
		if err != nil {
			return fmt.Errorf("queue milestone: %w", err)
		}
		fmt.Printf("Queued milestone job %s for %s at %d stories\n", j.ID, userID, count)
		return nil
	}

	if err := a.InitGeneration(); err != nil {
		return err
	}

	run, err := a.Runner.RunMilestone(ctx, userID, count)
	if err != nil {
		return fmt.Errorf("milestone analysis: %w", err)
	}

	fmt.Printf("Milestone %d for %s (model %s)\n", count, userID, run.ModelVersion)
	if run.Fallback {
		fmt.Println("  analysis unavailable, used fallback prompt")
	}
	for _, p := range run.Prompts {
		printPrompt(p)
	}
	fmt.Printf("Saved: %d inserted, %d skipped, %d failed (%d rejected by quality gate)\n",
		run.Saved.Inserted, run.Saved.Skipped, run.Saved.Failed, run.Rejected)

	if ci := run.CharacterInsights; ci != nil {
		fmt.Println()
		fmt.Println("=== Character Insights ===")
		for _, t := range ci.Traits {
			fmt.Printf("  %-24s %.2f\n", t.Trait, t.Confidence)
		}
		for _, r := range ci.InvisibleRules {
			fmt.Printf("  rule: %s\n", r)
		}
		for _, l := range ci.CoreLessons {
			fmt.Printf("  lesson: %s\n", l)
		}
	}
	return nil
}
