package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paultaki/whisperprompts/internal/model"
)

const upsertCharacterInsight = `
INSERT INTO character_insights (user_id, story_count, insights, model_version, analyzed_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id, story_count) DO UPDATE SET
    insights = excluded.insights,
    model_version = excluded.model_version,
    analyzed_at = excluded.analyzed_at
`

// UpsertCharacterInsight stores ci, replacing any record for the same
// (user, story count).
func (q *Queries) UpsertCharacterInsight(ctx context.Context, ci model.CharacterInsight, modelVersion string) error {
	body, err := json.Marshal(ci)
	if err != nil {
		return fmt.Errorf("marshal insights: %w", err)
	}

	_, err = q.db.ExecContext(ctx, upsertCharacterInsight,
		ci.UserID, ci.StoryCount, string(body), modelVersion, ts(ci.AnalyzedAt))
	if err != nil {
		return fmt.Errorf("upsert character insight: %w", err)
	}
	return nil
}

// GetLatestCharacterInsight returns the insight with the highest story count
// for a user.
func (q *Queries) GetLatestCharacterInsight(ctx context.Context, userID string) (model.CharacterInsight, error) {
	var body string
	err := q.db.QueryRowContext(ctx, `
SELECT insights FROM character_insights
WHERE user_id = ? ORDER BY story_count DESC LIMIT 1`, userID).Scan(&body)
	if err != nil {
		return model.CharacterInsight{}, notFound(err)
	}

	var ci model.CharacterInsight
	if err := json.Unmarshal([]byte(body), &ci); err != nil {
		return model.CharacterInsight{}, fmt.Errorf("unmarshal insights: %w", err)
	}
	ci.UserID = userID
	return ci, nil
}

// CountCharacterInsights returns how many insight records exist for a user.
func (q *Queries) CountCharacterInsights(ctx context.Context, userID string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM character_insights WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count character insights: %w", err)
	}
	return n, nil
}
