package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paultaki/whisperprompts/internal/model"
)

// Storyteller is a registered storyteller.
type Storyteller struct {
	ID        string
	Name      string
	BirthYear *int
	CreatedAt time.Time
}

const upsertStoryteller = `
INSERT INTO storytellers (id, name, birth_year, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name = CASE WHEN excluded.name != '' THEN excluded.name ELSE storytellers.name END,
    birth_year = COALESCE(excluded.birth_year, storytellers.birth_year)
`

// UpsertStoryteller registers a storyteller or updates the supplied fields.
func (q *Queries) UpsertStoryteller(ctx context.Context, st Storyteller) error {
	created := st.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := q.db.ExecContext(ctx, upsertStoryteller, st.ID, st.Name, nullInt(st.BirthYear), ts(created))
	if err != nil {
		return fmt.Errorf("upsert storyteller: %w", err)
	}
	return nil
}

const getStoryteller = `
SELECT id, name, birth_year, created_at FROM storytellers WHERE id = ?
`

// GetStoryteller returns the storyteller with id.
func (q *Queries) GetStoryteller(ctx context.Context, id string) (Storyteller, error) {
	var st Storyteller
	var birth sql.NullInt64
	err := q.db.QueryRowContext(ctx, getStoryteller, id).Scan(&st.ID, &st.Name, &birth, &st.CreatedAt)
	if err != nil {
		return Storyteller{}, notFound(err)
	}
	st.BirthYear = intPtr(birth)
	return st, nil
}

const createStory = `
INSERT INTO stories (id, user_id, title, transcript, lesson_learned, story_year, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

// CreateStory stores a story. The storyteller must exist.
func (q *Queries) CreateStory(ctx context.Context, s model.Story) error {
	_, err := q.db.ExecContext(ctx, createStory,
		s.ID, s.UserID, s.Title, s.Transcript, s.LessonLearned, nullInt(s.StoryYear), ts(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("create story: %w", err)
	}
	return nil
}

const storyColumns = `id, user_id, title, transcript, lesson_learned, story_year, created_at`

func scanStory(row interface{ Scan(...any) error }) (model.Story, error) {
	var s model.Story
	var year sql.NullInt64
	if err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.Transcript, &s.LessonLearned, &year, &s.CreatedAt); err != nil {
		return model.Story{}, err
	}
	s.StoryYear = intPtr(year)
	s.CreatedAt = s.CreatedAt.UTC()
	return s, nil
}

// GetStory returns the story with id.
func (q *Queries) GetStory(ctx context.Context, id string) (model.Story, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+storyColumns+` FROM stories WHERE id = ?`, id)
	s, err := scanStory(row)
	if err != nil {
		return model.Story{}, notFound(err)
	}
	return s, nil
}

// ListStoriesByUser returns a storyteller's stories, oldest first.
func (q *Queries) ListStoriesByUser(ctx context.Context, userID string) ([]model.Story, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+storyColumns+` FROM stories WHERE user_id = ? ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	var stories []model.Story
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		stories = append(stories, s)
	}
	return stories, rows.Err()
}

// CountStoriesByUser returns how many stories a storyteller has saved.
func (q *Queries) CountStoriesByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stories WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count stories: %w", err)
	}
	return n, nil
}
