// Package gittest provides an in-memory git.Git for tests.
package gittest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/colonyops/forager/internal/core/git"
)

// Fake simulates a single repository. Clone creates the destination directory
// with a README so filesystem checks behave as after a real clone.
type Fake struct {
	mu sync.Mutex

	// Calls records method names in invocation order.
	Calls []string
	// Errs makes the named method fail, e.g. Errs["Push"].
	Errs map[string]error
	// Files are written into the destination on Clone, keyed by relative path.
	Files map[string]string

	CloneURL  string
	CloneOpts git.CloneOptions
	Branches  map[string]bool
	Config    map[string]string
	Messages  []string

	Head         string
	CommitsAhead int
	Dirty        bool
	Staged       bool
	Diff         string
	PushedBranch string
}

// New returns a Fake with a HEAD revision and a clean tree.
func New() *Fake {
	return &Fake{
		Errs:     map[string]error{},
		Branches: map[string]bool{},
		Config:   map[string]string{},
		Head:     "0000000000000000000000000000000000000001",
	}
}

var _ git.Git = (*Fake)(nil)

func (f *Fake) call(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, name)
	return f.Errs[name]
}

// Called reports whether method name was invoked.
func (f *Fake) Called(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if c == name {
			return true
		}
	}
	return false
}

func (f *Fake) Clone(_ context.Context, url, dest string, opts git.CloneOptions) error {
	f.mu.Lock()
	f.CloneURL = url
	f.CloneOpts = opts
	f.mu.Unlock()

	// A failed clone can leave a partial directory behind.
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	if err := f.call("Clone"); err != nil {
		return err
	}

	files := f.Files
	if files == nil {
		files = map[string]string{"README.md": "# repo\n"}
	}
	for rel, content := range files {
		p := filepath.Join(dest, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fake) CreateBranch(_ context.Context, _, name string) error {
	if err := f.call("CreateBranch"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Branches[name] = true
	return nil
}

func (f *Fake) BranchExists(_ context.Context, _, name string) (bool, error) {
	if err := f.call("BranchExists"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Branches[name], nil
}

func (f *Fake) SetConfig(_ context.Context, _, key, value string) error {
	if err := f.call("SetConfig"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Config[key] = value
	return nil
}

func (f *Fake) AddAll(_ context.Context, _ string) error {
	if err := f.call("AddAll"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Dirty {
		f.Staged = true
	}
	return nil
}

func (f *Fake) HasStaged(_ context.Context, _ string) (bool, error) {
	if err := f.call("HasStaged"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Staged, nil
}

func (f *Fake) Commit(_ context.Context, _, message string, allowEmpty bool) error {
	if err := f.call("Commit"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.Staged && !allowEmpty {
		return fmt.Errorf("nothing to commit, working tree clean")
	}
	f.Messages = append(f.Messages, message)
	f.CommitsAhead++
	f.Staged = false
	f.Dirty = false
	f.Head = fmt.Sprintf("%040d", time.Now().UnixNano())
	return nil
}

func (f *Fake) Push(_ context.Context, _, _, branch string, _ time.Duration) error {
	if err := f.call("Push"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PushedBranch = branch
	return nil
}

func (f *Fake) IsClean(_ context.Context, _ string) (bool, error) {
	if err := f.call("IsClean"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.Dirty, nil
}

func (f *Fake) HeadRevision(_ context.Context, _ string) (string, error) {
	if err := f.call("HeadRevision"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Head, nil
}

func (f *Fake) CommitsSince(_ context.Context, _, _ string) (int, error) {
	if err := f.call("CommitsSince"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CommitsAhead, nil
}

func (f *Fake) GetDiff(_ context.Context, _ string, _ git.DiffOptions) (string, error) {
	if err := f.call("GetDiff"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Diff, nil
}
