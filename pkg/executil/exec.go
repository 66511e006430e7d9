// Package executil provides external process execution with captured output,
// explicit environments and bounded run times.
package executil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	maxStderrLen = 500

	maxCapture = 4 << 20
)

// ErrTimeout is wrapped by errors returned when a command exceeds its Timeout.
var ErrTimeout = errors.New("command timed out")

// Command describes a single process invocation. Env is used as the complete
// environment of the child; a nil Env starts the process with no variables.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds the captured output of a finished process.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ExitError is returned when a process exits non-zero. Stderr is capped so
// large or ANSI-polluted output does not end up in logs verbatim.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited with code %d: %s", e.Name, e.Code, e.Stderr)
	}
	return fmt.Sprintf("%s exited with code %d", e.Name, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode returns the exit code carried by err, or -1 when err does not come
// from a process exit.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

// limitedWriter caps writes to a bytes.Buffer at a maximum byte count.
// Bytes beyond the limit are silently discarded.
type limitedWriter struct {
	buf *bytes.Buffer
	n   int64
	max int64
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.n >= w.max {
		return len(p), nil
	}
	remaining := w.max - w.n
	origLen := len(p)
	if int64(origLen) > remaining {
		p = p[:remaining]
	}
	n, err := w.buf.Write(p)
	w.n += int64(n)
	if err != nil {
		return n, err
	}
	return origLen, nil
}

// Executor runs external processes.
type Executor interface {
	Exec(ctx context.Context, cmd Command) (Result, error)
}

// RealExecutor runs actual processes.
type RealExecutor struct{}

// Exec runs cmd to completion. A non-zero exit yields an *ExitError, a timeout
// yields an error wrapping ErrTimeout. The Result is populated in both cases.
func (e *RealExecutor) Exec(ctx context.Context, cmd Command) (Result, error) {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append([]string{}, cmd.Env...)
	c.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	c.Stdout = &limitedWriter{buf: &stdout, max: maxCapture}
	c.Stderr = &limitedWriter{buf: &stderr, max: maxCapture}

	runErr := c.Run()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: c.ProcessState.ExitCode(),
	}

	if runErr == nil {
		return res, nil
	}

	if ctx.Err() == context.DeadlineExceeded && cmd.Timeout > 0 {
		return res, fmt.Errorf("%s: %w after %s", cmd.Name, ErrTimeout, cmd.Timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return res, &ExitError{
			Name:   cmd.Name,
			Code:   exitErr.ExitCode(),
			Stderr: capString(strings.TrimSpace(stderr.String()), maxStderrLen),
			Err:    runErr,
		}
	}

	return res, fmt.Errorf("exec %s: %w", cmd.Name, runErr)
}

// PassEnv returns NAME=value pairs for the named variables that are set in
// the current process environment.
func PassEnv(names ...string) []string {
	env := make([]string, 0, len(names))
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	return env
}

func capString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
