package doctor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/forager/internal/forager/workspace"
)

type fakeSweeper struct {
	stale   []workspace.StaleWorkspace
	err     error
	removed []string
}

func (f *fakeSweeper) Stale(time.Duration) ([]workspace.StaleWorkspace, error) {
	return f.stale, f.err
}

func (f *fakeSweeper) Cleanup(id string) {
	f.removed = append(f.removed, id)
}

func TestStaleWorkspacesCheck(t *testing.T) {
	old := time.Now().Add(-3 * time.Hour)
	leftovers := []workspace.StaleWorkspace{
		{ID: "acme-widgets-issue-7-1a2b3c4d", Path: "/ws/acme-widgets-issue-7-1a2b3c4d", ModTime: old},
		{ID: "acme-widgets-issue-9-deadbeef", Path: "/ws/acme-widgets-issue-9-deadbeef", ModTime: old},
	}

	t.Run("none", func(t *testing.T) {
		result := NewStaleWorkspacesCheck(&fakeSweeper{}, time.Hour, false).Run(context.Background())

		require.Len(t, result.Items, 1)
		assert.Equal(t, StatusPass, result.Items[0].Status)
	})

	t.Run("reports without autofix", func(t *testing.T) {
		sw := &fakeSweeper{stale: leftovers}
		results := RunAll(context.Background(), []Check{NewStaleWorkspacesCheck(sw, time.Hour, false)})

		require.Len(t, results, 1)
		require.Len(t, results[0].Items, 2)
		for _, item := range results[0].Items {
			assert.Equal(t, StatusWarn, item.Status)
			assert.True(t, item.Fixable)
			assert.Equal(t, "warn", item.StatusStr)
		}
		assert.Empty(t, sw.removed)
		assert.Equal(t, 2, CountFixable(results))
	})

	t.Run("autofix removes", func(t *testing.T) {
		sw := &fakeSweeper{stale: leftovers}
		result := NewStaleWorkspacesCheck(sw, time.Hour, true).Run(context.Background())

		assert.Equal(t, []string{"acme-widgets-issue-7-1a2b3c4d", "acme-widgets-issue-9-deadbeef"}, sw.removed)
		for _, item := range result.Items {
			assert.Equal(t, StatusPass, item.Status)
			assert.Contains(t, item.Detail, "removed")
		}
	})

	t.Run("listing error fails", func(t *testing.T) {
		sw := &fakeSweeper{err: errors.New("permission denied")}
		result := NewStaleWorkspacesCheck(sw, time.Hour, true).Run(context.Background())

		require.Len(t, result.Items, 1)
		assert.Equal(t, StatusFail, result.Items[0].Status)
		assert.True(t, Failed([]Result{result}))
	})
}
