package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/paultaki/whisperprompts/internal/db"
	"github.com/paultaki/whisperprompts/internal/generator"
	"github.com/paultaki/whisperprompts/internal/model"
)

// Runner executes generation for one story or one milestone.
type Runner struct {
	store    *db.Store
	echo     *generator.Echo
	tier1    *generator.Tier1
	analyzer *generator.Analyzer
	index    Index
}

// RunnerConfig holds the Runner's dependencies. Index is optional.
type RunnerConfig struct {
	Store    *db.Store
	Echo     *generator.Echo
	Tier1    *generator.Tier1
	Analyzer *generator.Analyzer
	Index    Index
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		store:    cfg.Store,
		echo:     cfg.Echo,
		tier1:    cfg.Tier1,
		analyzer: cfg.Analyzer,
		index:    cfg.Index,
	}
}

// StoryResult is the outcome of per-story generation.
type StoryResult struct {
	StoryID string
	Echo    *model.Prompt
	Tier1   []model.Prompt
	Saved   SaveResult
}

// RunStory generates the echo and Tier-1 prompts for a saved story and
// persists them. Tier-1 prompts are saved even when the echo call fails; the
// echo error is still returned so the job can be retried.
func (r *Runner) RunStory(ctx context.Context, storyID string) (*StoryResult, error) {
	story, err := r.store.GetStory(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("get story %s: %w", storyID, err)
	}

	res := &StoryResult{StoryID: storyID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := r.echo.Generate(gctx, story.Transcript)
		if err != nil {
			return err
		}
		res.Echo = p
		return nil
	})
	g.Go(func() error {
		res.Tier1 = r.tier1.Generate(story.Transcript, story.StoryYear)
		return nil
	})
	echoErr := g.Wait()

	var prompts []model.Prompt
	if res.Echo != nil {
		res.Echo.UserID = story.UserID
		prompts = append(prompts, *res.Echo)
	}
	for i := range res.Tier1 {
		res.Tier1[i].UserID = story.UserID
	}
	prompts = append(prompts, res.Tier1...)

	res.Saved = SavePrompts(ctx, r.store.Queries, r.index, prompts)

	slog.Info("story prompts generated",
		"story_id", storyID,
		"user_id", story.UserID,
		"echo", res.Echo != nil,
		"tier1", len(res.Tier1),
		"inserted", res.Saved.Inserted,
		"skipped", res.Saved.Skipped,
		"failed", res.Saved.Failed)

	if echoErr != nil {
		return res, fmt.Errorf("story %s: %w", storyID, echoErr)
	}
	return res, nil
}

// MilestoneRun is the outcome of a milestone analysis after persistence.
type MilestoneRun struct {
	*generator.MilestoneResult
	Saved SaveResult
}

// RunMilestone analyzes a user's first milestone stories, saves the prompts
// and, when present, the character insights.
func (r *Runner) RunMilestone(ctx context.Context, userID string, milestone int) (*MilestoneRun, error) {
	stories, err := r.store.ListStoriesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	if milestone > 0 && len(stories) > milestone {
		stories = stories[:milestone]
	}
	if milestone <= 0 {
		milestone = len(stories)
	}

	var birthYear *int
	st, err := r.store.GetStoryteller(ctx, userID)
	switch {
	case err == nil:
		birthYear = st.BirthYear
	case !errors.Is(err, db.ErrNotFound):
		return nil, fmt.Errorf("get storyteller: %w", err)
	}

	result, err := r.analyzer.Analyze(ctx, stories, milestone, birthYear)
	if err != nil {
		return nil, fmt.Errorf("milestone %d for %s: %w", milestone, userID, err)
	}

	run := &MilestoneRun{MilestoneResult: result}
	run.Saved = SavePrompts(ctx, r.store.Queries, r.index, result.Prompts)

	if result.CharacterInsights != nil {
		if err := r.store.UpsertCharacterInsight(ctx, *result.CharacterInsights, result.ModelVersion); err != nil {
			return run, fmt.Errorf("save character insights: %w", err)
		}
	}

	slog.Info("milestone prompts generated",
		"user_id", userID,
		"milestone", milestone,
		"prompts", len(result.Prompts),
		"rejected", result.Rejected,
		"fallback", result.Fallback,
		"insights", result.CharacterInsights != nil,
		"inserted", run.Saved.Inserted,
		"skipped", run.Saved.Skipped,
		"tokens", result.Usage.Total)

	return run, nil
}

// RunJob dispatches a queued job by kind.
func (r *Runner) RunJob(ctx context.Context, j db.Job) error {
	switch j.Kind {
	case db.JobStory:
		_, err := r.RunStory(ctx, j.StoryID)
		return err
	case db.JobMilestone:
		_, err := r.RunMilestone(ctx, j.UserID, j.Milestone)
		return err
	default:
		return fmt.Errorf("unknown job kind: %s", j.Kind)
	}
}
