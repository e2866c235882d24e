package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paultaki/whisperprompts/internal/db"
	"github.com/paultaki/whisperprompts/internal/quality"
)

// CleanupResult counts what Cleanup did.
type CleanupResult struct {
	Checked         int
	RetiredInvalid  int
	RetiredLowScore int
	Failed          int
}

// Cleanup re-checks every active prompt and moves those that fail the
// validator, or score below minScore, to prompt_history. Each prompt is
// retired in its own transaction.
func Cleanup(ctx context.Context, store *db.Store, minScore int, now time.Time) (CleanupResult, error) {
	prompts, err := store.ListAllPrompts(ctx)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("list prompts: %w", err)
	}

	var res CleanupResult
	for _, p := range prompts {
		res.Checked++

		reason := ""
		if v := quality.Check(p.PromptText); !v.Valid {
			reason = db.RetiredFailedValidation
		} else {
			// Generation signals are not stored, so the better score wins.
			score := quality.Score(p.PromptText, nil)
			if p.Score > score {
				score = p.Score
			}
			if score < minScore {
				reason = db.RetiredLowScore
			}
		}
		if reason == "" {
			continue
		}

		if err := store.RetirePrompt(ctx, p.ID, reason, now); err != nil {
			slog.Error("failed to retire prompt", "prompt_id", p.ID, "error", err)
			res.Failed++
			continue
		}

		slog.Info("retired prompt", "prompt_id", p.ID, "user_id", p.UserID, "reason", reason)
		if reason == db.RetiredFailedValidation {
			res.RetiredInvalid++
		} else {
			res.RetiredLowScore++
		}
	}

	return res, nil
}
