package db

import (
	"context"
	"fmt"
)

// Stats is a snapshot of table sizes.
type Stats struct {
	Storytellers      int64
	Stories           int64
	ActivePrompts     int64
	RetiredPrompts    int64
	CharacterInsights int64
	JobsByStatus      map[string]int64
	PromptsByTier     map[string]int64
}

// GetStats counts rows across the engine's tables.
func (q *Queries) GetStats(ctx context.Context) (Stats, error) {
	st := Stats{
		JobsByStatus:  make(map[string]int64),
		PromptsByTier: make(map[string]int64),
	}

	counts := []struct {
		table string
		dst   *int64
	}{
		{"storytellers", &st.Storytellers},
		{"stories", &st.Stories},
		{"active_prompts", &st.ActivePrompts},
		{"prompt_history", &st.RetiredPrompts},
		{"character_insights", &st.CharacterInsights},
	}
	for _, c := range counts {
		if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.table).Scan(c.dst); err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", c.table, err)
		}
	}

	if err := q.groupCount(ctx, `SELECT status, COUNT(*) FROM generation_jobs GROUP BY status`, st.JobsByStatus); err != nil {
		return Stats{}, err
	}
	if err := q.groupCount(ctx, `SELECT tier, COUNT(*) FROM active_prompts GROUP BY tier`, st.PromptsByTier); err != nil {
		return Stats{}, err
	}

	return st, nil
}

func (q *Queries) groupCount(ctx context.Context, query string, dst map[string]int64) error {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("group count: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan group count: %w", err)
		}
		dst[key] = n
	}
	return rows.Err()
}
