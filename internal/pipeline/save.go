// Package pipeline connects the generators to storage: it runs generation
// for saved stories and milestones, persists the results and queues work.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/paultaki/whisperprompts/internal/db"
	"github.com/paultaki/whisperprompts/internal/model"
	"github.com/paultaki/whisperprompts/internal/vectorstore"
)

// Index flags prompts that are worded differently from, but mean the same
// as, a prompt the user already has.
type Index interface {
	Check(ctx context.Context, p model.Prompt) (vectorstore.Match, error)
	Add(ctx context.Context, p model.Prompt, vec []float32) error
}

// SaveResult counts the outcome of a SavePrompts call.
type SaveResult struct {
	Inserted int
	Skipped  int
	Failed   int
}

// Add accumulates o into r.
func (r *SaveResult) Add(o SaveResult) {
	r.Inserted += o.Inserted
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

// SavePrompts inserts each prompt on its own. Duplicate anchors and near
// duplicates are skipped, other errors are counted and logged, and the batch
// always runs to the end. index may be nil.
func SavePrompts(ctx context.Context, q *db.Queries, index Index, prompts []model.Prompt) SaveResult {
	var res SaveResult

	for _, p := range prompts {
		var vec []float32
		if index != nil {
			m, err := index.Check(ctx, p)
			switch {
			case err != nil:
				slog.Warn("prompt index check failed", "prompt_id", p.ID, "error", err)
			case m.Duplicate:
				slog.Info("skipping near-duplicate prompt",
					"user_id", p.UserID,
					"prompt", p.PromptText,
					"similar_to", m.PromptID,
					"similarity", m.Similarity)
				res.Skipped++
				continue
			default:
				vec = m.Vector
			}
		}

		err := q.CreatePrompt(ctx, p)
		if errors.Is(err, db.ErrDuplicateAnchor) {
			slog.Debug("skipping duplicate anchor", "user_id", p.UserID, "anchor", p.AnchorEntity)
			res.Skipped++
			continue
		}
		if err != nil {
			slog.Error("failed to save prompt", "prompt_id", p.ID, "user_id", p.UserID, "error", err)
			res.Failed++
			continue
		}
		res.Inserted++

		if index != nil && vec != nil {
			if err := index.Add(ctx, p, vec); err != nil {
				slog.Warn("failed to index prompt", "prompt_id", p.ID, "error", err)
			}
		}
	}

	return res
}
