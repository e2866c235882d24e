package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paultaki/whisperprompts/internal/db"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// recordingRunner fails jobs whose ID is in fail.
type recordingRunner struct {
	mu   sync.Mutex
	fail map[string]bool
	ran  []string
}

func (r *recordingRunner) RunJob(_ context.Context, j db.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, j.ID)
	if r.fail[j.ID] {
		return errors.New("gateway unavailable")
	}
	return nil
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ran)
}

func newTestWorker(t *testing.T, runner JobRunner, batch int) (*Worker, *db.Store) {
	t.Helper()
	store := db.NewTestStore(t)
	w := New(Config{Store: store, Runner: runner, Interval: 10 * time.Millisecond, BatchSize: batch})
	w.Now = func() time.Time { return testNow }
	return w, store
}

func enqueue(t *testing.T, store *db.Store, ids ...string) {
	t.Helper()
	for i, id := range ids {
		require.NoError(t, store.EnqueueJob(context.Background(), db.Job{
			ID: id, UserID: "u1", StoryID: "s1", Kind: db.JobStory,
			CreatedAt: testNow.Add(time.Duration(i) * time.Second),
		}))
	}
}

func TestNew_Defaults(t *testing.T) {
	w := New(Config{})
	assert.Equal(t, DefaultInterval, w.cfg.Interval)
	assert.Equal(t, DefaultBatchSize, w.cfg.BatchSize)
	assert.Equal(t, DefaultMaxAttempts, w.cfg.MaxAttempts)
}

func TestWorker_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("completes jobs in order", func(t *testing.T) {
		runner := &recordingRunner{}
		w, store := newTestWorker(t, runner, 10)
		enqueue(t, store, "j1", "j2")

		n, err := w.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []string{"j1", "j2"}, runner.ran)

		for _, id := range []string{"j1", "j2"} {
			j, err := store.GetJob(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, db.JobDone, j.Status)
		}

		st, ok := w.Health().Status(ComponentJobs)
		require.True(t, ok)
		assert.True(t, st.Healthy)
	})

	t.Run("respects batch size", func(t *testing.T) {
		runner := &recordingRunner{}
		w, store := newTestWorker(t, runner, 1)
		enqueue(t, store, "j1", "j2")

		n, err := w.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, []string{"j1"}, runner.ran)
	})

	t.Run("retries then gives up", func(t *testing.T) {
		runner := &recordingRunner{fail: map[string]bool{"j1": true}}
		w, store := newTestWorker(t, runner, 10)
		enqueue(t, store, "j1")

		for i := 0; i < DefaultMaxAttempts+1; i++ {
			_, err := w.RunOnce(ctx)
			require.NoError(t, err)
		}
		assert.Equal(t, DefaultMaxAttempts, runner.count())

		j, err := store.GetJob(ctx, "j1")
		require.NoError(t, err)
		assert.Equal(t, db.JobFailed, j.Status)
		assert.Equal(t, "gateway unavailable", j.Error)

		st, ok := w.Health().Status(ComponentJobs)
		require.True(t, ok)
		assert.False(t, st.Healthy)
	})

	t.Run("nothing pending", func(t *testing.T) {
		w, _ := newTestWorker(t, &recordingRunner{}, 10)
		n, err := w.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestWorker_Run(t *testing.T) {
	runner := &recordingRunner{}
	w, store := newTestWorker(t, runner, 10)
	enqueue(t, store, "j1")

	// A job left running by a previous process is picked up again.
	_, err := store.ClaimPendingJobs(context.Background(), 10, testNow)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		j, err := store.GetJob(context.Background(), "j1")
		return err == nil && j.Status == db.JobDone
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 1, runner.count())
}
