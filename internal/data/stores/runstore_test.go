package stores

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/colonyops/forager/internal/core/history"
	"github.com/colonyops/forager/internal/data/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunStore(t *testing.T) *RunStore {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "forager.db"), db.DefaultOpenOptions())
	require.NoError(t, err, "Open")
	t.Cleanup(func() { _ = database.Close() })
	return NewRunStore(database)
}

func sampleRun(id string, started time.Time) history.Run {
	return history.Run{
		ID:         id,
		DeliveryID: "delivery-" + id,
		RepoURL:    "https://github.com/acme/widgets",
		Issue:      42,
		Mode:       "plan",
		User:       "octocat",
		State:      "queued",
		StartedAt:  started,
	}
}

func TestRunStore(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("start and get", func(t *testing.T) {
		store := newRunStore(t)

		require.NoError(t, store.Start(ctx, sampleRun("r1", base)))

		got, err := store.Get(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "r1", got.ID)
		assert.Equal(t, "delivery-r1", got.DeliveryID)
		assert.Equal(t, 42, got.Issue)
		assert.Equal(t, history.StatusRunning, got.Status)
		assert.True(t, base.Equal(got.StartedAt))
		assert.Nil(t, got.FinishedAt)
	})

	t.Run("duplicate start fails", func(t *testing.T) {
		store := newRunStore(t)

		require.NoError(t, store.Start(ctx, sampleRun("r1", base)))
		assert.Error(t, store.Start(ctx, sampleRun("r1", base)))
	})

	t.Run("get not found", func(t *testing.T) {
		store := newRunStore(t)

		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, history.ErrNotFound)
	})

	t.Run("finish records outcome", func(t *testing.T) {
		store := newRunStore(t)
		require.NoError(t, store.Start(ctx, sampleRun("r1", base)))

		done := base.Add(90 * time.Second)
		err := store.Finish(ctx, "r1", history.Outcome{
			Status:         history.StatusSucceeded,
			State:          "completed",
			Branch:         "forager/issue-42-plan",
			PullRequestURL: "https://github.com/acme/widgets/pull/7",
			FinishedAt:     done,
		})
		require.NoError(t, err)

		got, err := store.Get(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, history.StatusSucceeded, got.Status)
		assert.Equal(t, "completed", got.State)
		assert.Equal(t, "forager/issue-42-plan", got.Branch)
		assert.Equal(t, "https://github.com/acme/widgets/pull/7", got.PullRequestURL)
		require.NotNil(t, got.FinishedAt)
		assert.Equal(t, 90*time.Second, got.Duration())
		assert.False(t, got.Failed())
	})

	t.Run("finish failure keeps error kind", func(t *testing.T) {
		store := newRunStore(t)
		require.NoError(t, store.Start(ctx, sampleRun("r1", base)))

		err := store.Finish(ctx, "r1", history.Outcome{
			Status:    history.StatusFailed,
			State:     "failed",
			Error:     "clone failed",
			ErrorKind: "workspace",
		})
		require.NoError(t, err)

		got, err := store.Get(ctx, "r1")
		require.NoError(t, err)
		assert.True(t, got.Failed())
		assert.Equal(t, "clone failed", got.Error)
		assert.Equal(t, "workspace", got.ErrorKind)
		assert.NotNil(t, got.FinishedAt, "zero FinishedAt defaults to now")
	})

	t.Run("finish unknown run", func(t *testing.T) {
		store := newRunStore(t)

		err := store.Finish(ctx, "missing", history.Outcome{Status: history.StatusFailed})
		assert.ErrorIs(t, err, history.ErrNotFound)
	})

	t.Run("list newest first with limit", func(t *testing.T) {
		store := newRunStore(t)
		for i, id := range []string{"old", "mid", "new"} {
			require.NoError(t, store.Start(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Minute))))
		}

		all, err := store.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "new", all[0].ID)
		assert.Equal(t, "mid", all[1].ID)
		assert.Equal(t, "old", all[2].ID)

		two, err := store.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, two, 2)
		assert.Equal(t, "new", two[0].ID)
	})

	t.Run("list empty", func(t *testing.T) {
		store := newRunStore(t)

		runs, err := store.List(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})
}

func TestRecoverFromCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forager.db")
	require.NoError(t, os.WriteFile(path, []byte("not a database"), 0o644))
	require.NoError(t, os.WriteFile(path+"-wal", []byte("wal"), 0o644))

	backup, err := RecoverFromCorruption(path)
	require.NoError(t, err)

	assert.NoFileExists(t, path)
	assert.NoFileExists(t, path+"-wal")
	assert.FileExists(t, backup)
	assert.FileExists(t, backup+"-wal")
}

func TestRecoverFromCorruption_Missing(t *testing.T) {
	_, err := RecoverFromCorruption(filepath.Join(t.TempDir(), "forager.db"))
	assert.NoError(t, err)
}

func TestOpenWithRecovery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forager.db")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("garbage!", 1024)), 0o644))

	database, err := OpenWithRecovery(path, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	store := NewRunStore(database)
	require.NoError(t, store.Start(context.Background(), sampleRun("r1", time.Now())))

	matches, err := filepath.Glob(path + ".corrupt.*")
	require.NoError(t, err)
	assert.NotEmpty(t, matches)
}

func TestIsNotFoundError(t *testing.T) {
	assert.False(t, IsNotFoundError(os.ErrNotExist))
}
