package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paultaki/whisperprompts/internal/db"
	"github.com/paultaki/whisperprompts/internal/generator"
	"github.com/paultaki/whisperprompts/internal/llm"
	"github.com/paultaki/whisperprompts/internal/model"
	"github.com/paultaki/whisperprompts/internal/quality"
	"github.com/paultaki/whisperprompts/internal/vectorstore"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

const chewyStory = `We got Chewy in 1962. Mom called him "housebroken by love" because he never once had an accident.`

const milestoneBatch = `{
  "prompts": [
    {"prompt": "Who first called Chewy \"housebroken by love\"?", "memoryType": "person_expansion", "anchorEntity": "Chewy", "anchorYear": 1962, "usesExactPhrase": true},
    {"prompt": "Where did your father keep the keys to the Camaro?", "memoryType": "object_story", "anchorEntity": "Camaro", "anchorYear": "1971"}
  ],
  "characterInsights": {
    "traits": [{"trait": "quiet loyalty", "confidence": 0.7, "evidence": ["never once had an accident"]}],
    "invisibleRules": [],
    "contradictions": [],
    "coreLessons": []
  }
}`

var testSelector = llm.Selector{FastModel: "fast-model", PremiumModel: "premium-model"}

func newTestRunner(store *db.Store, gw llm.Gateway, sel llm.Selector, index Index) *Runner {
	echo := generator.NewEcho(gw, sel)
	echo.Now = clock
	tier1 := &generator.Tier1{Now: clock}
	analyzer := generator.NewAnalyzer(gw, sel)
	analyzer.Now = clock
	return NewRunner(RunnerConfig{Store: store, Echo: echo, Tier1: tier1, Analyzer: analyzer, Index: index})
}

func newTestDispatcher(store *db.Store) *Dispatcher {
	d := NewDispatcher(store)
	d.Now = clock
	return d
}

func prompt(userID, text, hash string, score int) model.Prompt {
	return model.Prompt{
		ID:         model.NewPromptID(),
		UserID:     userID,
		PromptText: text,
		Tier:       model.TierOne,
		MemoryType: model.MemoryEventAdjacent,
		AnchorHash: hash,
		Score:      score,
		CreatedAt:  testNow,
	}
}

// fakeIndex marks texts in dup as near-duplicates and records additions.
type fakeIndex struct {
	dup   map[string]bool
	err   error
	added []string
}

func (f *fakeIndex) Check(_ context.Context, p model.Prompt) (vectorstore.Match, error) {
	if f.err != nil {
		return vectorstore.Match{}, f.err
	}
	return vectorstore.Match{Duplicate: f.dup[p.PromptText], PromptID: "existing", Vector: []float32{1}}, nil
}

func (f *fakeIndex) Add(_ context.Context, p model.Prompt, _ []float32) error {
	f.added = append(f.added, p.PromptText)
	return nil
}

func TestSavePrompts(t *testing.T) {
	ctx := context.Background()

	t.Run("counts inserted skipped and failed", func(t *testing.T) {
		store := db.NewTestStore(t)
		prompts := []model.Prompt{
			prompt("u1", "a?", "h1", 50),
			prompt("u1", "b?", "h1", 50),  // same anchor
			prompt("u1", "c?", "h2", 150), // violates score check
			prompt("u1", "d?", "h3", 70),
		}

		res := SavePrompts(ctx, store.Queries, nil, prompts)
		assert.Equal(t, SaveResult{Inserted: 2, Skipped: 1, Failed: 1}, res)

		active, err := store.ListActivePrompts(ctx, "u1", testNow)
		require.NoError(t, err)
		assert.Len(t, active, 2)
	})

	t.Run("near duplicates skipped", func(t *testing.T) {
		store := db.NewTestStore(t)
		index := &fakeIndex{dup: map[string]bool{"b?": true}}

		res := SavePrompts(ctx, store.Queries, index, []model.Prompt{
			prompt("u1", "a?", "h1", 50),
			prompt("u1", "b?", "h2", 50),
		})
		assert.Equal(t, SaveResult{Inserted: 1, Skipped: 1}, res)
		assert.Equal(t, []string{"a?"}, index.added)
	})

	t.Run("index failure does not block insert", func(t *testing.T) {
		store := db.NewTestStore(t)
		index := &fakeIndex{err: errors.New("ollama down")}

		res := SavePrompts(ctx, store.Queries, index, []model.Prompt{prompt("u1", "a?", "h1", 50)})
		assert.Equal(t, SaveResult{Inserted: 1}, res)
		assert.Empty(t, index.added)
	})

	t.Run("empty batch", func(t *testing.T) {
		store := db.NewTestStore(t)
		assert.Equal(t, SaveResult{}, SavePrompts(ctx, store.Queries, nil, nil))
	})
}

func TestDispatcher(t *testing.T) {
	ctx := context.Background()
	store := db.NewTestStore(t)
	d := newTestDispatcher(store)

	kinds := func(jobs []db.Job) []string {
		out := make([]string, len(jobs))
		for i, j := range jobs {
			out[i] = j.Kind
		}
		return out
	}

	jobs, err := d.SaveStory(ctx, model.Story{UserID: "u1", Transcript: chewyStory})
	require.NoError(t, err)
	assert.Equal(t, []string{db.JobStory, db.JobMilestone}, kinds(jobs))
	assert.Equal(t, 1, jobs[1].Milestone)
	assert.NotEmpty(t, jobs[0].StoryID)

	jobs, err = d.SaveStory(ctx, model.Story{UserID: "u1", Transcript: "We drove to Lake Erie."})
	require.NoError(t, err)
	assert.Equal(t, []string{db.JobStory}, kinds(jobs))

	jobs, err = d.SaveStory(ctx, model.Story{UserID: "u1", Transcript: "Dad bought a Camaro."})
	require.NoError(t, err)
	assert.Equal(t, []string{db.JobStory, db.JobMilestone}, kinds(jobs))
	assert.Equal(t, 3, jobs[1].Milestone)

	queued, err := store.ListJobsByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, queued, 5)

	t.Run("failed save queues nothing", func(t *testing.T) {
		_, err := d.SaveStory(ctx, model.Story{ID: queued[0].StoryID, UserID: "u1", Transcript: "again"})
		assert.Error(t, err)

		after, err := store.ListJobsByUser(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, after, 5)
	})

	t.Run("story saved elsewhere", func(t *testing.T) {
		// Still three stories, so the milestone job is queued again.
		jobs, err := d.StorySaved(ctx, "u1", queued[0].StoryID)
		require.NoError(t, err)
		assert.Equal(t, []string{db.JobStory, db.JobMilestone}, kinds(jobs))
	})
}

func TestRunner_RunStory(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, gw llm.Gateway) (*db.Store, *Runner, string) {
		store := db.NewTestStore(t)
		jobs, err := newTestDispatcher(store).SaveStory(ctx, model.Story{UserID: "u1", Transcript: chewyStory})
		require.NoError(t, err)
		return store, newTestRunner(store, gw, testSelector, nil), jobs[0].StoryID
	}

	t.Run("saves echo and tier-1", func(t *testing.T) {
		gw := llm.Text("Who taught you to whittle?")
		store, r, storyID := setup(t, gw)

		res, err := r.RunStory(ctx, storyID)
		require.NoError(t, err)
		require.NotNil(t, res.Echo)
		assert.Equal(t, "u1", res.Echo.UserID)
		assert.Len(t, res.Tier1, 2)
		assert.Equal(t, SaveResult{Inserted: 3}, res.Saved)
		assert.Equal(t, 1, gw.CallCount())

		active, err := store.ListActivePrompts(ctx, "u1", testNow)
		require.NoError(t, err)
		assert.Len(t, active, 3)
		for _, p := range active {
			assert.Equal(t, "u1", p.UserID)
		}
	})

	t.Run("rerun skips existing anchors", func(t *testing.T) {
		_, r, storyID := setup(t, llm.Text("Who taught you to whittle?"))

		_, err := r.RunStory(ctx, storyID)
		require.NoError(t, err)

		res, err := r.RunStory(ctx, storyID)
		require.NoError(t, err)
		assert.Equal(t, SaveResult{Skipped: 3}, res.Saved)
	})

	t.Run("echo failure keeps tier-1", func(t *testing.T) {
		store, r, storyID := setup(t, &llm.MockGateway{Err: errors.New("upstream 503")})

		res, err := r.RunStory(ctx, storyID)
		assert.ErrorContains(t, err, "upstream 503")
		require.NotNil(t, res)
		assert.Nil(t, res.Echo)
		assert.Equal(t, 2, res.Saved.Inserted)

		active, err := store.ListActivePrompts(ctx, "u1", testNow)
		require.NoError(t, err)
		assert.Len(t, active, 2)
	})

	t.Run("unknown story", func(t *testing.T) {
		_, r, _ := setup(t, llm.Text("Who taught you to whittle?"))
		_, err := r.RunStory(ctx, "missing")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})
}

func TestRunner_RunMilestone(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, n int) *db.Store {
		store := db.NewTestStore(t)
		d := newTestDispatcher(store)
		for i := 0; i < n; i++ {
			d.Now = func() time.Time { return testNow.Add(time.Duration(i) * time.Minute) }
			_, err := d.SaveStory(ctx, model.Story{UserID: "u1", Transcript: chewyStory})
			require.NoError(t, err)
		}
		return store
	}

	t.Run("saves prompts without insights when deep is off", func(t *testing.T) {
		store := seed(t, 1)
		gw := &llm.MockGateway{Responses: []*llm.Response{{Text: milestoneBatch, Model: "fast-model"}}}

		run, err := newTestRunner(store, gw, testSelector, nil).RunMilestone(ctx, "u1", 1)
		require.NoError(t, err)
		assert.Len(t, run.Prompts, 2)
		assert.Nil(t, run.CharacterInsights)
		assert.Equal(t, SaveResult{Inserted: 2}, run.Saved)

		n, err := store.CountCharacterInsights(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("persists insights when deep is on", func(t *testing.T) {
		store := seed(t, 1)
		sel := testSelector
		sel.DeepInsights = true
		gw := &llm.MockGateway{Responses: []*llm.Response{{Text: milestoneBatch, Model: "premium-model"}}}

		run, err := newTestRunner(store, gw, sel, nil).RunMilestone(ctx, "u1", 1)
		require.NoError(t, err)
		require.NotNil(t, run.CharacterInsights)
		assert.Equal(t, "premium-model", gw.Calls[0].Model)

		ci, err := store.GetLatestCharacterInsight(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, ci.StoryCount)
		require.Len(t, ci.Traits, 1)
		assert.Equal(t, "quiet loyalty", ci.Traits[0].Trait)
	})

	t.Run("locks all but one at the paywall", func(t *testing.T) {
		store := seed(t, 3)
		gw := &llm.MockGateway{Responses: []*llm.Response{{Text: milestoneBatch, Model: "fast-model"}}}

		run, err := newTestRunner(store, gw, testSelector, nil).RunMilestone(ctx, "u1", 3)
		require.NoError(t, err)
		require.Len(t, run.Prompts, 2)
		assert.False(t, run.Prompts[0].IsLocked)
		assert.True(t, run.Prompts[1].IsLocked)
	})

	t.Run("gateway failure", func(t *testing.T) {
		store := seed(t, 1)
		gw := &llm.MockGateway{Err: errors.New("timeout")}

		_, err := newTestRunner(store, gw, testSelector, nil).RunMilestone(ctx, "u1", 1)
		assert.ErrorContains(t, err, "timeout")
	})

	t.Run("no stories", func(t *testing.T) {
		store := db.NewTestStore(t)
		_, err := newTestRunner(store, llm.Text("{}"), testSelector, nil).RunMilestone(ctx, "u1", 1)
		assert.ErrorIs(t, err, generator.ErrNoStories)
	})
}

func TestRunner_RunJob(t *testing.T) {
	store := db.NewTestStore(t)
	r := newTestRunner(store, llm.Text("Who taught you to whittle?"), testSelector, nil)

	err := r.RunJob(context.Background(), db.Job{Kind: "reindex"})
	assert.ErrorContains(t, err, "unknown job kind")
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	store := db.NewTestStore(t)

	const (
		good    = "Who taught you to whittle?"
		weak    = "Where was your father's car parked?"
		therapy = "How did that make you feel?"
	)
	minScore := quality.Score(weak, nil) + 1
	require.Greater(t, quality.Score(good, nil), minScore)
	require.True(t, quality.Validate(weak))

	keep := prompt("u1", good, "h1", quality.Score(good, nil))
	low := prompt("u1", weak, "h2", quality.Score(weak, nil))
	bad := prompt("u1", therapy, "h3", 60)
	for _, p := range []model.Prompt{keep, low, bad} {
		require.NoError(t, store.CreatePrompt(ctx, p))
	}

	res, err := Cleanup(ctx, store, minScore, testNow)
	require.NoError(t, err)
	assert.Equal(t, CleanupResult{Checked: 3, RetiredInvalid: 1, RetiredLowScore: 1}, res)

	active, err := store.ListActivePrompts(ctx, "u1", testNow)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, keep.ID, active[0].ID)

	history, err := store.ListPromptHistory(ctx, "u1")
	require.NoError(t, err)
	reasons := map[string]string{}
	for _, h := range history {
		reasons[h.ID] = h.RetiredReason
	}
	assert.Equal(t, db.RetiredLowScore, reasons[low.ID])
	assert.Equal(t, db.RetiredFailedValidation, reasons[bad.ID])
}
