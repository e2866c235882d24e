package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/paultaki/whisperprompts/internal/db"
	"github.com/paultaki/whisperprompts/internal/model"
)

var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Manage stories",
}

var storyAddCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Save a story and queue its prompt generation",
	Long: `Save a story transcript and queue prompt generation for it.

The transcript is read from the given file, or from stdin when no file
is given. Generation itself runs in the worker (see "serve").`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStoryAdd,
}

var storyListCmd = &cobra.Command{
	Use:   "list <user-id>",
	Short: "List a storyteller's stories",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoryList,
}

var (
	storyUser      string
	storyTitle     string
	storyLesson    string
	storyYear      int
	storyBirthYear int
	storyName      string
)

func init() {
	storyAddCmd.Flags().StringVar(&storyUser, "user", "", "storyteller id (required)")
	storyAddCmd.Flags().StringVar(&storyTitle, "title", "", "story title")
	storyAddCmd.Flags().StringVar(&storyLesson, "lesson", "", "lesson learned")
	storyAddCmd.Flags().IntVar(&storyYear, "year", 0, "year the story took place")
	storyAddCmd.Flags().IntVar(&storyBirthYear, "birth-year", 0, "storyteller birth year")
	storyAddCmd.Flags().StringVar(&storyName, "name", "", "storyteller name")
	_ = storyAddCmd.MarkFlagRequired("user")

	storyCmd.AddCommand(storyAddCmd, storyListCmd)
	rootCmd.AddCommand(storyCmd)
}

func runStoryAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var r io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open transcript: %w", err)
		}
		defer f.Close()
		r = f
	}
	transcript, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}
	if len(transcript) == 0 {
		return fmt.Errorf("transcript is empty")
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if storyName != "" || storyBirthYear > 0 {
		st := db.Storyteller{ID: storyUser, Name: storyName}
		if storyBirthYear > 0 {
			st.BirthYear = &storyBirthYear
		}
		if err := a.Store.UpsertStoryteller(ctx, st); err != nil {
			return fmt.Errorf("save storyteller: %w", err)
		}
	}

	s := model.Story{
		UserID:        storyUser,
		Title:         storyTitle,
		Transcript:    string(transcript),
		LessonLearned: storyLesson,
	}
	if storyYear > 0 {
		s.StoryYear = &storyYear
	}

	jobs, err := a.Dispatcher.SaveStory(ctx, s)
	if err != nil {
		return fmt.Errorf("save story: %w", err)
	}

	fmt.Printf("Saved story for %s\n", storyUser)
	for _, j := range jobs {
		if j.Kind == db.JobMilestone {
			fmt.Printf("  queued %s job %s (milestone %d)\n", j.Kind, j.ID, j.Milestone)
			continue
		}
		fmt.Printf("  queued %s job %s (story %s)\n", j.Kind, j.ID, j.StoryID)
	}
	return nil
}

func runStoryList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	stories, err := a.Store.ListStoriesByUser(ctx, args[0])
	if err != nil {
		return fmt.Errorf("list stories: %w", err)
	}

	return printJSON(stories)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
