package db

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Job kinds.
const (
	JobStory     = "story"
	JobMilestone = "milestone"
)

// Job statuses.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// Job is a queued generation task.
type Job struct {
	ID        string
	UserID    string
	StoryID   string
	Kind      string
	Milestone int
	Status    string
	Attempts  int
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const jobColumns = `id, user_id, story_id, kind, milestone, status, attempts, error, created_at, updated_at`

func scanJob(row interface{ Scan(...any) error }) (Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.UserID, &j.StoryID, &j.Kind, &j.Milestone, &j.Status,
		&j.Attempts, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	return j, err
}

// EnqueueJob adds a pending job.
func (q *Queries) EnqueueJob(ctx context.Context, j Job) error {
	now := ts(j.CreatedAt)
	_, err := q.db.ExecContext(ctx, `
INSERT INTO generation_jobs (id, user_id, story_id, kind, milestone, status, attempts, error, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 'pending', 0, '', ?, ?)`,
		j.ID, j.UserID, j.StoryID, j.Kind, j.Milestone, now, now)
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// ClaimPendingJobs marks up to limit pending jobs as running and returns
// them oldest first. Each claim counts as an attempt.
func (q *Queries) ClaimPendingJobs(ctx context.Context, limit int, now time.Time) ([]Job, error) {
	rows, err := q.db.QueryContext(ctx, `
UPDATE generation_jobs
SET status = 'running', attempts = attempts + 1, updated_at = ?
WHERE id IN (
    SELECT id FROM generation_jobs
    WHERE status = 'pending'
    ORDER BY created_at, rowid
    LIMIT ?
)
RETURNING id`, ts(now), limit)
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan job id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The connection is released above; a single-conn pool would block otherwise.
	jobs := make([]Job, 0, len(ids))
	for _, id := range ids {
		j, err := q.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}

	sort.SliceStable(jobs, func(i, k int) bool { return jobs[i].CreatedAt.Before(jobs[k].CreatedAt) })
	return jobs, nil
}

// CompleteJob marks a job done.
func (q *Queries) CompleteJob(ctx context.Context, id string, now time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE generation_jobs SET status = 'done', error = '', updated_at = ? WHERE id = ?`, ts(now), id)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// FailJob records a failure. The job goes back to pending until it has used
// maxAttempts, then it stays failed.
func (q *Queries) FailJob(ctx context.Context, id, errText string, maxAttempts int, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
UPDATE generation_jobs
SET status = CASE WHEN attempts >= ? THEN 'failed' ELSE 'pending' END,
    error = ?, updated_at = ?
WHERE id = ?`, maxAttempts, errText, ts(now), id)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// ResetRunningJobs returns jobs left running by a previous process to pending.
func (q *Queries) ResetRunningJobs(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE generation_jobs SET status = 'pending', updated_at = ? WHERE status = 'running'`, ts(now))
	if err != nil {
		return 0, fmt.Errorf("reset running jobs: %w", err)
	}
	return res.RowsAffected()
}

// GetJob returns the job with id.
func (q *Queries) GetJob(ctx context.Context, id string) (Job, error) {
	j, err := scanJob(q.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM generation_jobs WHERE id = ?`, id))
	if err != nil {
		return Job{}, notFound(err)
	}
	return j, nil
}

// ListJobsByUser returns a user's jobs, oldest first.
func (q *Queries) ListJobsByUser(ctx context.Context, userID string) ([]Job, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs WHERE user_id = ? ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
