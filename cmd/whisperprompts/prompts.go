package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts <user-id>",
	Short: "List a storyteller's prompts",
	Long: `List the active, unexpired prompts for a storyteller, best first.
With --history, list retired prompts instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runPrompts,
}

var promptsHistory bool

func init() {
	promptsCmd.Flags().BoolVar(&promptsHistory, "history", false, "show retired prompts")
	rootCmd.AddCommand(promptsCmd)
}

func runPrompts(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	userID := args[0]

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if promptsHistory {
		entries, err := a.Store.ListPromptHistory(ctx, userID)
		if err != nil {
			return fmt.Errorf("list history: %w", err)
		}
		return printJSON(entries)
	}

	prompts, err := a.Store.ListActivePrompts(ctx, userID, time.Now())
	if err != nil {
		return fmt.Errorf("list prompts: %w", err)
	}
	if len(prompts) == 0 {
		fmt.Printf("No active prompts for %s\n", userID)
		return nil
	}

	fmt.Printf("Active prompts for %s\n", userID)
	for _, p := range prompts {
		printPrompt(p)
	}
	return nil
}
