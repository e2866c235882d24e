package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Long:  `Display statistics about storytellers, stories, prompts, and jobs.`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.Store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	fmt.Println("=== Stories ===")
	fmt.Printf("Storytellers:       %d\n", st.Storytellers)
	fmt.Printf("Stories:            %d\n", st.Stories)
	fmt.Printf("Character insights: %d\n", st.CharacterInsights)
	fmt.Println()

	fmt.Println("=== Prompts ===")
	fmt.Printf("Active:             %d\n", st.ActivePrompts)
	fmt.Printf("Retired:            %d\n", st.RetiredPrompts)
	for _, tier := range []string{"echo", "1", "3"} {
		fmt.Printf("  %-17s %d\n", "tier "+tier+":", st.PromptsByTier[tier])
	}
	fmt.Println()

	fmt.Println("=== Jobs ===")
	for _, status := range []string{"pending", "running", "done", "failed"} {
		fmt.Printf("%-19s %d\n", status+":", st.JobsByStatus[status])
	}

	if a.Config.IndexEnabled() {
		fmt.Println()
		fmt.Println("=== Prompt Index ===")
		ix, err := a.OpenIndex()
		if err != nil {
			slog.Warn("failed to open prompt index", "error", err)
			return nil
		}
		defer ix.Close()
		fmt.Printf("Indexed prompts:    %d\n", ix.Count())
	}

	return nil
}
