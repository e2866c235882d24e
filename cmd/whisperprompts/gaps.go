package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/paultaki/whisperprompts/internal/db"
	"github.com/paultaki/whisperprompts/internal/timeline"
)

var gapsCmd = &cobra.Command{
	Use:   "gaps <user-id>",
	Short: "Show life phases without a story",
	Args:  cobra.ExactArgs(1),
	RunE:  runGaps,
}

func init() {
	rootCmd.AddCommand(gapsCmd)
}

func runGaps(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	userID := args[0]

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	stories, err := a.Store.ListStoriesByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list stories: %w", err)
	}

	var birthYear *int
	st, err := a.Store.GetStoryteller(ctx, userID)
	switch {
	case err == nil:
		birthYear = st.BirthYear
	case !errors.Is(err, db.ErrNotFound):
		return fmt.Errorf("get storyteller: %w", err)
	}

	return printJSON(timeline.DetectGaps(stories, birthYear, time.Now()))
}
