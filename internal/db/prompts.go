package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/paultaki/whisperprompts/internal/model"
)

// ErrDuplicateAnchor is returned when a prompt with the same anchor hash
// already exists for the user.
var ErrDuplicateAnchor = errors.New("duplicate prompt anchor")

// Retirement reasons recorded in prompt_history.
const (
	RetiredFailedValidation = "failed_validation"
	RetiredLowScore         = "low_score"
)

const createPrompt = `
INSERT INTO active_prompts (
    id, user_id, prompt_text, tier, memory_type, anchor_entity, anchor_year,
    anchor_hash, context_note, score, is_locked, expires_at, shown_count,
    model_version, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, anchor_hash) DO NOTHING
`

// CreatePrompt inserts p. A conflict on (user_id, anchor_hash) inserts
// nothing and returns ErrDuplicateAnchor.
func (q *Queries) CreatePrompt(ctx context.Context, p model.Prompt) error {
	res, err := q.db.ExecContext(ctx, createPrompt,
		p.ID, p.UserID, p.PromptText, string(p.Tier), string(p.MemoryType), p.AnchorEntity,
		nullInt(p.AnchorYear), p.AnchorHash, p.ContextNote, p.Score, p.IsLocked,
		nullTime(p.ExpiresAt), p.ShownCount, p.ModelVersion, ts(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("create prompt: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create prompt: %w", err)
	}
	if n == 0 {
		return ErrDuplicateAnchor
	}
	return nil
}

const promptColumns = `
    id, user_id, prompt_text, tier, memory_type, anchor_entity, anchor_year,
    anchor_hash, context_note, score, is_locked, expires_at, shown_count,
    model_version, created_at`

func scanPrompt(row interface{ Scan(...any) error }) (model.Prompt, error) {
	var (
		p       model.Prompt
		tier    string
		mt      string
		year    sql.NullInt64
		expires sql.NullTime
	)
	err := row.Scan(&p.ID, &p.UserID, &p.PromptText, &tier, &mt, &p.AnchorEntity, &year,
		&p.AnchorHash, &p.ContextNote, &p.Score, &p.IsLocked, &expires, &p.ShownCount,
		&p.ModelVersion, &p.CreatedAt)
	if err != nil {
		return model.Prompt{}, err
	}
	p.Tier = model.Tier(tier)
	p.MemoryType = model.MemoryType(mt)
	p.AnchorYear = intPtr(year)
	p.ExpiresAt = timePtr(expires)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (q *Queries) listPrompts(ctx context.Context, query string, args ...any) ([]model.Prompt, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	var prompts []model.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}

// GetPrompt returns the active prompt with id.
func (q *Queries) GetPrompt(ctx context.Context, id string) (model.Prompt, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+promptColumns+` FROM active_prompts WHERE id = ?`, id)
	p, err := scanPrompt(row)
	if err != nil {
		return model.Prompt{}, notFound(err)
	}
	return p, nil
}

// ListActivePrompts returns a user's prompts that have not expired at now,
// highest score first. Expiry is computed here and never written.
func (q *Queries) ListActivePrompts(ctx context.Context, userID string, now time.Time) ([]model.Prompt, error) {
	return q.listPrompts(ctx, `SELECT `+promptColumns+`
FROM active_prompts
WHERE user_id = ? AND (expires_at IS NULL OR expires_at > ?)
ORDER BY score DESC, created_at, rowid`, userID, ts(now))
}

// ListAllPrompts returns every active prompt regardless of expiry.
func (q *Queries) ListAllPrompts(ctx context.Context) ([]model.Prompt, error) {
	return q.listPrompts(ctx, `SELECT `+promptColumns+` FROM active_prompts ORDER BY user_id, created_at, rowid`)
}

// MarkPromptShown increments a prompt's shown count.
func (q *Queries) MarkPromptShown(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `UPDATE active_prompts SET shown_count = shown_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark prompt shown: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const archivePrompt = `
INSERT INTO prompt_history (
    id, user_id, prompt_text, tier, memory_type, anchor_entity, anchor_hash,
    score, shown_count, model_version, created_at, retired_reason, retired_at
)
SELECT id, user_id, prompt_text, tier, memory_type, anchor_entity, anchor_hash,
       score, shown_count, model_version, created_at, ?, ?
FROM active_prompts WHERE id = ?
`

// ArchivePrompt copies an active prompt into prompt_history.
func (q *Queries) ArchivePrompt(ctx context.Context, id, reason string, at time.Time) error {
	res, err := q.db.ExecContext(ctx, archivePrompt, reason, ts(at), id)
	if err != nil {
		return fmt.Errorf("archive prompt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePrompt removes an active prompt.
func (q *Queries) DeletePrompt(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM active_prompts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	return nil
}

// RetirePrompt moves an active prompt to history in one transaction.
func (s *Store) RetirePrompt(ctx context.Context, id, reason string, at time.Time) error {
	return s.InTx(ctx, func(q *Queries) error {
		if err := q.ArchivePrompt(ctx, id, reason, at); err != nil {
			return err
		}
		return q.DeletePrompt(ctx, id)
	})
}

// HistoryEntry is a retired prompt.
type HistoryEntry struct {
	ID            string
	UserID        string
	PromptText    string
	RetiredReason string
	RetiredAt     time.Time
}

// ListPromptHistory returns a user's retired prompts, newest first.
func (q *Queries) ListPromptHistory(ctx context.Context, userID string) ([]HistoryEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id, user_id, prompt_text, retired_reason, retired_at
FROM prompt_history WHERE user_id = ? ORDER BY retired_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list prompt history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.PromptText, &e.RetiredReason, &e.RetiredAt); err != nil {
			return nil, fmt.Errorf("scan prompt history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
