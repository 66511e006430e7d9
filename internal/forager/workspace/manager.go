// Package workspace manages the per-task working copies: clone, branch,
// commit, push and guaranteed removal.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/forager/internal/core/git"
	"github.com/colonyops/forager/internal/core/ignore"
	"github.com/colonyops/forager/internal/core/taskerr"
	"github.com/colonyops/forager/pkg/kv"
)

// Options configures a Manager.
type Options struct {
	Root         string
	CloneDepth   int
	CloneTimeout time.Duration
	PushTimeout  time.Duration
	Remote       string
	AuthHost     string
	AuthorName   string
	AuthorEmail  string
	Ignore       []string
}

// Manager owns the workspace root. Each workspace directory belongs to exactly
// one task from Prepare until Cleanup. While it is held, a sibling
// "<id>.owner" file records the pid of the process holding it, so other
// processes sharing the root can tell it is in use.
type Manager struct {
	log    zerolog.Logger
	git    git.Git
	opts   Options
	ignore *ignore.Matcher
	live   *kv.Store[string, time.Time]
}

// NewManager creates a workspace manager.
func NewManager(log zerolog.Logger, g git.Git, opts Options) *Manager {
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	return &Manager{
		log:    log.With().Str("component", "workspace").Logger(),
		git:    g,
		opts:   opts,
		ignore: ignore.New(opts.Ignore...),
		live:   kv.New[string, time.Time](),
	}
}

// Workspace is an acquired working copy. Release removes it and is safe to
// call any number of times.
type Workspace struct {
	ID   string
	Path string

	m    *Manager
	once sync.Once
}

// Release removes the workspace directory exactly once.
func (w *Workspace) Release() {
	w.once.Do(func() { w.m.Cleanup(w.ID) })
}

// Acquire prepares a workspace and returns a handle whose Release must be
// deferred by the caller. On error no directory is left behind.
func (m *Manager) Acquire(ctx context.Context, repoURL, id, token string) (*Workspace, error) {
	path, err := m.Prepare(ctx, repoURL, id, token)
	if err != nil {
		return nil, err
	}
	return &Workspace{ID: id, Path: path, m: m}, nil
}

// Path returns the directory for workspace id.
func (m *Manager) Path(id string) string {
	return filepath.Join(m.opts.Root, id)
}

// Prepare shallow-clones repoURL into a fresh directory named id. A stale
// directory with the same name is removed first. The token is only sent to
// the configured auth host.
func (m *Manager) Prepare(ctx context.Context, repoURL, id, token string) (string, error) {
	if err := validateID(id); err != nil {
		return "", taskerr.New(taskerr.KindWorkspace, "prepare", err)
	}

	if err := os.MkdirAll(m.opts.Root, 0o755); err != nil {
		return "", taskerr.New(taskerr.KindWorkspace, "prepare", fmt.Errorf("create workspace root: %w", err))
	}

	dir := m.Path(id)
	if _, err := os.Stat(dir); err == nil {
		m.log.Warn().Ctx(ctx).Str("path", dir).Msg("removing stale workspace")
		if err := os.RemoveAll(dir); err != nil {
			return "", taskerr.New(taskerr.KindWorkspace, "prepare", fmt.Errorf("remove stale workspace: %w", err))
		}
	}

	if err := m.claim(id); err != nil {
		return "", taskerr.New(taskerr.KindWorkspace, "prepare", err)
	}

	cloneURL := git.AuthenticatedURL(repoURL, m.opts.AuthHost, token)
	m.log.Info().Ctx(ctx).
		Str("url", git.Redact(cloneURL)).
		Str("path", dir).
		Int("depth", m.opts.CloneDepth).
		Bool("authenticated", cloneURL != repoURL).
		Msg("cloning repository")

	start := time.Now()
	err := m.git.Clone(ctx, cloneURL, dir, git.CloneOptions{
		Depth:        m.opts.CloneDepth,
		SingleBranch: true,
		Timeout:      m.opts.CloneTimeout,
	})
	if err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			m.log.Error().Ctx(ctx).Err(rmErr).Str("path", dir).Msg("failed to remove partial clone")
		}
		m.release(id)
		return "", taskerr.New(taskerr.KindClone, "clone", err)
	}

	m.live.Set(id, time.Now())
	m.log.Info().Ctx(ctx).Str("path", dir).Dur("took", time.Since(start)).Msg("repository cloned")
	return dir, nil
}

// CreateBranch creates and checks out name from HEAD.
func (m *Manager) CreateBranch(ctx context.Context, path, name string) error {
	exists, err := m.git.BranchExists(ctx, path, name)
	if err != nil {
		return taskerr.New(taskerr.KindBranch, "create branch", err)
	}
	if exists {
		return taskerr.New(taskerr.KindBranch, "create branch", fmt.Errorf("%s: %w", name, taskerr.ErrBranchExists))
	}

	if err := m.git.CreateBranch(ctx, path, name); err != nil {
		return taskerr.New(taskerr.KindBranch, "create branch", err)
	}

	m.log.Debug().Ctx(ctx).Str("branch", name).Msg("branch created")
	return nil
}

// ConfigureIdentity sets the bot commit identity in the workspace's own git
// config. The global config is never touched.
func (m *Manager) ConfigureIdentity(ctx context.Context, path string) error {
	if err := m.git.SetConfig(ctx, path, "user.name", m.opts.AuthorName); err != nil {
		return taskerr.New(taskerr.KindCommit, "configure identity", err)
	}
	if err := m.git.SetConfig(ctx, path, "user.email", m.opts.AuthorEmail); err != nil {
		return taskerr.New(taskerr.KindCommit, "configure identity", err)
	}
	return nil
}

// Commit stages every change and commits it. Without allowEmpty a clean index
// fails with taskerr.ErrNothingToCommit.
func (m *Manager) Commit(ctx context.Context, path, message string, allowEmpty bool) error {
	if err := m.ConfigureIdentity(ctx, path); err != nil {
		return err
	}

	if err := m.git.AddAll(ctx, path); err != nil {
		return taskerr.New(taskerr.KindCommit, "commit", err)
	}

	if !allowEmpty {
		staged, err := m.git.HasStaged(ctx, path)
		if err != nil {
			return taskerr.New(taskerr.KindCommit, "commit", err)
		}
		if !staged {
			return taskerr.New(taskerr.KindCommit, "commit", taskerr.ErrNothingToCommit)
		}
	}

	if err := m.git.Commit(ctx, path, message, allowEmpty); err != nil {
		return taskerr.New(taskerr.KindCommit, "commit", err)
	}

	m.log.Debug().Ctx(ctx).Bool("allow_empty", allowEmpty).Msg("changes committed")
	return nil
}

// Push pushes branch to the configured remote.
func (m *Manager) Push(ctx context.Context, path, branch string) error {
	if err := m.git.Push(ctx, path, m.opts.Remote, branch, m.opts.PushTimeout); err != nil {
		return taskerr.New(taskerr.KindPush, "push", err)
	}

	m.log.Info().Ctx(ctx).Str("branch", branch).Str("remote", m.opts.Remote).Msg("branch pushed")
	return nil
}

// HeadRevision returns the commit checked out in the workspace.
func (m *Manager) HeadRevision(ctx context.Context, path string) (string, error) {
	rev, err := m.git.HeadRevision(ctx, path)
	if err != nil {
		return "", taskerr.New(taskerr.KindWorkspace, "head revision", err)
	}
	return rev, nil
}

// ChangeSet describes what happened in a workspace since a base revision.
type ChangeSet struct {
	Commits int
	Dirty   bool
	Files   []git.FileChange
}

// Empty reports whether nothing was committed and nothing is pending.
func (c ChangeSet) Empty() bool {
	return c.Commits == 0 && !c.Dirty
}

// Changes reports commits made since base, uncommitted edits, and the files
// touched by those commits.
func (m *Manager) Changes(ctx context.Context, path, base string) (ChangeSet, error) {
	var cs ChangeSet

	commits, err := m.git.CommitsSince(ctx, path, base)
	if err != nil {
		return cs, taskerr.New(taskerr.KindWorkspace, "inspect changes", err)
	}
	cs.Commits = commits

	clean, err := m.git.IsClean(ctx, path)
	if err != nil {
		return cs, taskerr.New(taskerr.KindWorkspace, "inspect changes", err)
	}
	cs.Dirty = !clean

	if commits == 0 {
		return cs, nil
	}

	diff, err := m.git.GetDiff(ctx, path, git.DiffOptions{Mode: git.DiffSince, Base: base})
	if err != nil {
		return cs, taskerr.New(taskerr.KindWorkspace, "inspect changes", err)
	}

	files, err := git.ParseChanges(diff)
	if err != nil {
		// File stats only decorate the pull request body.
		m.log.Warn().Ctx(ctx).Err(err).Msg("could not parse change set diff")
		return cs, nil
	}
	cs.Files = files
	return cs, nil
}

// Cleanup removes workspace id. A missing directory is not an error; removal
// failures are logged and never returned.
func (m *Manager) Cleanup(id string) {
	defer m.live.Delete(id)

	if validateID(id) != nil {
		m.log.Error().Str("workspace", id).Msg("refusing to clean up invalid workspace id")
		return
	}

	defer m.release(id)

	dir := m.Path(id)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		m.log.Debug().Str("path", dir).Msg("workspace already removed")
		return
	}

	if err := os.RemoveAll(dir); err != nil {
		m.log.Error().Err(err).Str("path", dir).Msg("failed to remove workspace")
		return
	}

	m.log.Info().Str("path", dir).Msg("workspace removed")
}

// release removes the owner file of workspace id.
func (m *Manager) release(id string) {
	if err := os.Remove(m.ownerPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.log.Warn().Err(err).Str("workspace", id).Msg("failed to remove owner file")
	}
}

// Live returns the ids of workspaces prepared and not yet cleaned up by this
// manager.
func (m *Manager) Live() []string {
	return m.live.Keys()
}

// StaleWorkspace is a directory under the root that no task owns.
type StaleWorkspace struct {
	ID      string
	Path    string
	ModTime time.Time
}

// Stale lists directories under the root that were last modified before
// olderThan ago and that neither this manager nor another running process
// holds. Ownership by a process on another machine sharing the root is not
// detected.
func (m *Manager) Stale(olderThan time.Duration) ([]StaleWorkspace, error) {
	entries, err := os.ReadDir(m.opts.Root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read workspace root: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	var stale []StaleWorkspace
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, owned := m.live.Get(e.Name()); owned {
			continue
		}
		if m.ownedByLiveProcess(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		stale = append(stale, StaleWorkspace{ID: e.Name(), Path: m.Path(e.Name()), ModTime: info.ModTime()})
	}

	sort.Slice(stale, func(i, j int) bool { return stale[i].ID < stale[j].ID })
	return stale, nil
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid workspace id %q", id)
	}
	return nil
}
