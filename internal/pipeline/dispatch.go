package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/paultaki/whisperprompts/internal/db"
	"github.com/paultaki/whisperprompts/internal/model"
)

// Dispatcher queues generation work when a story is saved. It never calls
// the gateway, so the save path returns without waiting on a model.
type Dispatcher struct {
	store *db.Store
	Now   func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(store *db.Store) *Dispatcher {
	return &Dispatcher{store: store, Now: time.Now}
}

// SaveStory stores s, registering the storyteller if needed, and queues its
// jobs in the same transaction.
func (d *Dispatcher) SaveStory(ctx context.Context, s model.Story) ([]db.Job, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = d.Now()
	}

	var jobs []db.Job
	err := d.store.InTx(ctx, func(q *db.Queries) error {
		if err := q.UpsertStoryteller(ctx, db.Storyteller{ID: s.UserID, CreatedAt: s.CreatedAt}); err != nil {
			return err
		}
		if err := q.CreateStory(ctx, s); err != nil {
			return err
		}
		var err error
		jobs, err = d.enqueue(ctx, q, s.UserID, s.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// StorySaved queues a story job for a story that is already stored and, when
// the user's story count has just reached a milestone, a milestone job.
func (d *Dispatcher) StorySaved(ctx context.Context, userID, storyID string) ([]db.Job, error) {
	var jobs []db.Job
	err := d.store.InTx(ctx, func(q *db.Queries) error {
		var err error
		jobs, err = d.enqueue(ctx, q, userID, storyID)
		return err
	})
	return jobs, err
}

// EnqueueMilestone queues a milestone job directly.
func (d *Dispatcher) EnqueueMilestone(ctx context.Context, userID string, milestone int) (db.Job, error) {
	j := d.newJob(userID, "", db.JobMilestone, milestone)
	if err := d.store.EnqueueJob(ctx, j); err != nil {
		return db.Job{}, err
	}
	return j, nil
}

func (d *Dispatcher) enqueue(ctx context.Context, q *db.Queries, userID, storyID string) ([]db.Job, error) {
	count, err := q.CountStoriesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	jobs := []db.Job{d.newJob(userID, storyID, db.JobStory, 0)}
	if model.IsMilestone(count) {
		jobs = append(jobs, d.newJob(userID, storyID, db.JobMilestone, count))
	}

	for _, j := range jobs {
		if err := q.EnqueueJob(ctx, j); err != nil {
			return nil, fmt.Errorf("enqueue %s job: %w", j.Kind, err)
		}
	}

	slog.Debug("jobs queued", "user_id", userID, "story_id", storyID, "story_count", count, "jobs", len(jobs))
	return jobs, nil
}

func (d *Dispatcher) newJob(userID, storyID, kind string, milestone int) db.Job {
	now := d.Now()
	return db.Job{
		ID:        uuid.NewString(),
		UserID:    userID,
		StoryID:   storyID,
		Kind:      kind,
		Milestone: milestone,
		Status:    db.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
