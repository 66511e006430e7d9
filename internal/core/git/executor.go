package git

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/colonyops/forager/pkg/executil"
)

// baseEnv is passed to every git invocation on top of the executor's
// explicit environment. Prompts would block a headless worker forever.
var baseEnv = []string{"GIT_TERMINAL_PROMPT=0"}

// Executor implements Git using the git command-line tool.
type Executor struct {
	gitPath string
	exec    executil.Executor
	env     []string
}

// NewExecutor creates a new git executor with the specified git binary path.
// env is the complete environment handed to git, see executil.PassEnv.
func NewExecutor(gitPath string, exec executil.Executor, env []string) *Executor {
	return &Executor{
		gitPath: gitPath,
		exec:    exec,
		env:     append(append([]string{}, env...), baseEnv...),
	}
}

func (e *Executor) run(ctx context.Context, dir string, timeout time.Duration, args ...string) (string, error) {
	res, err := e.exec.Exec(ctx, executil.Command{
		Name:    e.gitPath,
		Args:    args,
		Dir:     dir,
		Env:     e.env,
		Timeout: timeout,
	})
	return string(res.Stdout), err
}

func (e *Executor) Clone(ctx context.Context, rawURL, dest string, opts CloneOptions) error {
	args := []string{"clone"}
	if opts.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(opts.Depth))
	}
	if opts.SingleBranch {
		args = append(args, "--single-branch")
	}
	args = append(args, rawURL, dest)

	if _, err := e.run(ctx, "", opts.Timeout, args...); err != nil {
		return redactErr(fmt.Errorf("clone %s to %s: %w", Redact(rawURL), dest, err), rawURL)
	}
	return nil
}

func (e *Executor) CreateBranch(ctx context.Context, dir, name string) error {
	if _, err := e.run(ctx, dir, 0, "checkout", "-b", name); err != nil {
		return fmt.Errorf("checkout -b %s: %w", name, err)
	}
	return nil
}

func (e *Executor) BranchExists(ctx context.Context, dir, name string) (bool, error) {
	_, err := e.run(ctx, dir, 0, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	if err == nil {
		return true, nil
	}
	if executil.ExitCode(err) == 1 {
		return false, nil
	}
	return false, fmt.Errorf("show-ref %s: %w", name, err)
}

func (e *Executor) SetConfig(ctx context.Context, dir, key, value string) error {
	if _, err := e.run(ctx, dir, 0, "config", "--local", key, value); err != nil {
		return fmt.Errorf("config %s: %w", key, err)
	}
	return nil
}

func (e *Executor) AddAll(ctx context.Context, dir string) error {
	if _, err := e.run(ctx, dir, 0, "add", "-A"); err != nil {
		return fmt.Errorf("add -A: %w", err)
	}
	return nil
}

func (e *Executor) HasStaged(ctx context.Context, dir string) (bool, error) {
	_, err := e.run(ctx, dir, 0, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	if executil.ExitCode(err) == 1 {
		return true, nil
	}
	return false, fmt.Errorf("diff --cached: %w", err)
}

func (e *Executor) Commit(ctx context.Context, dir, message string, allowEmpty bool) error {
	args := []string{"commit", "-m", message}
	if allowEmpty {
		args = append(args, "--allow-empty")
	}
	if _, err := e.run(ctx, dir, 0, args...); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (e *Executor) Push(ctx context.Context, dir, remote, branch string, timeout time.Duration) error {
	if _, err := e.run(ctx, dir, timeout, "push", "-u", remote, branch); err != nil {
		return fmt.Errorf("push %s %s: %w", remote, branch, err)
	}
	return nil
}

func (e *Executor) IsClean(ctx context.Context, dir string) (bool, error) {
	out, err := e.run(ctx, dir, 0, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return len(strings.TrimSpace(out)) == 0, nil
}

func (e *Executor) HeadRevision(ctx context.Context, dir string) (string, error) {
	out, err := e.run(ctx, dir, 0, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (e *Executor) CommitsSince(ctx context.Context, dir, rev string) (int, error) {
	out, err := e.run(ctx, dir, 0, "rev-list", "--count", rev+"..HEAD")
	if err != nil {
		return 0, fmt.Errorf("git rev-list: %w", err)
	}

	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("parse rev-list count %q: %w", strings.TrimSpace(out), err)
	}
	return n, nil
}

// redactedError hides a credential that may appear in git's own output.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redactErr(err error, rawURL string) error {
	u, perr := url.Parse(rawURL)
	if perr != nil || u.User == nil {
		return err
	}
	pw, ok := u.User.Password()
	if !ok || pw == "" {
		return err
	}

	inner := errors.Unwrap(err)
	var exitErr *executil.ExitError
	if errors.As(err, &exitErr) {
		inner = &executil.ExitError{
			Name:   exitErr.Name,
			Code:   exitErr.Code,
			Stderr: strings.ReplaceAll(exitErr.Stderr, pw, "***"),
		}
	}

	return &redactedError{msg: strings.ReplaceAll(err.Error(), pw, "***"), err: inner}
}
