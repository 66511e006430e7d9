// Package stores implements the SQLite-backed persistence interfaces.
package stores

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/colonyops/forager/internal/core/history"
	"github.com/colonyops/forager/internal/data/db"
)

const (
	busyAttempts = 4
	busyWait     = 50 * time.Millisecond
)

const runColumns = `id, delivery_id, repo_url, issue, mode, user, status, state,
	error, error_kind, branch, pull_request_url, started_at, finished_at`

// RunStore implements history.Store using SQLite.
type RunStore struct {
	db *db.DB
}

var _ history.Store = (*RunStore)(nil)

// NewRunStore creates a new SQLite-backed run store.
func NewRunStore(db *db.DB) *RunStore {
	return &RunStore{db: db}
}

// Start records a run as in progress. Starting the same id twice fails.
func (s *RunStore) Start(ctx context.Context, run history.Run) error {
	if run.Status == "" {
		run.Status = history.StatusRunning
	}

	err := withBusyRetry(ctx, func() error {
		_, err := s.db.Conn().ExecContext(ctx, `
			INSERT INTO runs (`+runColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.DeliveryID, run.RepoURL, run.Issue, run.Mode, run.User,
			string(run.Status), run.State, run.Error, run.ErrorKind, run.Branch,
			run.PullRequestURL, run.StartedAt.UnixNano(), nullTime(run.FinishedAt),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to start run %s: %w", run.ID, err)
	}
	return nil
}

// Finish records the terminal outcome of a run. Returns history.ErrNotFound
// when the run was never started.
func (s *RunStore) Finish(ctx context.Context, id string, outcome history.Outcome) error {
	finished := outcome.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	var affected int64
	err := withBusyRetry(ctx, func() error {
		res, err := s.db.Conn().ExecContext(ctx, `
			UPDATE runs
			SET status = ?, state = ?, error = ?, error_kind = ?, branch = ?,
				pull_request_url = ?, finished_at = ?
			WHERE id = ?`,
			string(outcome.Status), outcome.State, outcome.Error, outcome.ErrorKind,
			outcome.Branch, outcome.PullRequestURL, finished.UnixNano(), id,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, err)
	}
	if affected == 0 {
		return history.ErrNotFound
	}
	return nil
}

// List returns runs newest first. limit <= 0 returns all of them.
func (s *RunStore) List(ctx context.Context, limit int) ([]history.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []history.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

// Get returns a run by ID. Returns history.ErrNotFound if not found.
func (s *RunStore) Get(ctx context.Context, id string) (history.Run, error) {
	row := s.db.Conn().QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if IsNotFoundError(err) {
		return history.Run{}, history.ErrNotFound
	}
	if err != nil {
		return history.Run{}, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (history.Run, error) {
	var (
		run      history.Run
		status   string
		started  int64
		finished sql.NullInt64
	)

	err := row.Scan(
		&run.ID, &run.DeliveryID, &run.RepoURL, &run.Issue, &run.Mode, &run.User,
		&status, &run.State, &run.Error, &run.ErrorKind, &run.Branch,
		&run.PullRequestURL, &started, &finished,
	)
	if err != nil {
		return history.Run{}, err
	}

	run.Status = history.Status(status)
	run.StartedAt = time.Unix(0, started)
	if finished.Valid {
		t := time.Unix(0, finished.Int64)
		run.FinishedAt = &t
	}
	return run, nil
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

// withBusyRetry retries fn while SQLite reports the database as busy.
func withBusyRetry(ctx context.Context, fn func() error) error {
	wait := busyWait
	var err error
	for range busyAttempts {
		if err = fn(); err == nil || !IsBusyError(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
