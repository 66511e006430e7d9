// Package taskerr classifies the failures a task can end with. Each error
// carries a Kind that decides whether the task source should redeliver it.
package taskerr

import (
	"errors"
	"fmt"
)

// Kind names a failure class.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindClone          Kind = "clone"
	KindBranch         Kind = "branch"
	KindCommit         Kind = "commit"
	KindPush           Kind = "push"
	KindHostAPI        Kind = "host_api"
	KindGeneration     Kind = "generation"
	KindWorkspace      Kind = "workspace"
	KindNotImplemented Kind = "not_implemented"
	KindPanic          Kind = "panic"
)

var (
	// ErrNothingToCommit is returned when a commit without allowEmpty finds a clean index.
	ErrNothingToCommit = errors.New("nothing to commit")
	// ErrBranchExists is returned when the working branch is already present.
	ErrBranchExists = errors.New("branch already exists")
	// ErrNoChanges is returned when code generation left the workspace untouched.
	ErrNoChanges = errors.New("code generation produced no changes")
	// ErrNotImplemented is returned by orchestrators for declared but unbuilt modes.
	ErrNotImplemented = errors.New("mode not implemented")
)

// Error is a classified task failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New classifies err as kind. An error that is already classified keeps its
// original kind so that wrapping at several layers does not relabel it.
// New returns nil for a nil err.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return err
	}

	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf classifies a formatted error message as kind.
func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether redelivering the task could succeed. Malformed
// tasks, unimplemented modes and orchestrator panics fail the same way every
// time.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindNotImplemented, KindPanic:
		return false
	default:
		return err != nil
	}
}
