package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/paultaki/whisperprompts/internal/model"
)

var generateCmd = &cobra.Command{
	Use:   "generate <story-id>",
	Short: "Generate prompts for one story now",
	Long: `Run echo and Tier-1 generation for a stored story synchronously,
bypassing the job queue, and save the prompts that pass the quality gate.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.InitGeneration(); err != nil {
		return err
	}

	res, err := a.Runner.RunStory(ctx, args[0])
	if res == nil {
		return err
	}
	if err != nil {
		// Tier-1 prompts are saved even when the echo call fails.
		slog.Warn("echo generation failed", "error", err)
	}

	fmt.Printf("Story %s\n", res.StoryID)
	if res.Echo != nil {
		printPrompt(*res.Echo)
	}
	for _, p := range res.Tier1 {
		printPrompt(p)
	}
	fmt.Printf("Saved: %d inserted, %d skipped, %d failed\n",
		res.Saved.Inserted, res.Saved.Skipped, res.Saved.Failed)
	return nil
}

func printPrompt(p model.Prompt) {
	anchor := p.AnchorEntity
	if p.AnchorYear != nil {
		anchor = fmt.Sprintf("%s (%d)", anchor, *p.AnchorYear)
	}
	lock := ""
	if p.IsLocked {
		lock = " [locked]"
	}
	fmt.Printf("  [tier %s, score %3d]%s %s\n", p.Tier, p.Score, lock, p.PromptText)
	if anchor != "" {
		fmt.Printf("      anchor: %s\n", anchor)
	}
}
