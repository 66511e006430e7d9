package executil

import (
	"context"
	"strings"
	"sync"
)

// RecordingExecutor captures commands for testing.
// Configure Outputs and Errors maps to control return values. Keys are matched
// most specific first: "git status" before "git".
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []Command

	// Outputs maps command keys to their stdout.
	Outputs map[string][]byte

	// Errors maps command keys to their error.
	Errors map[string]error

	// OnExec, when set, runs after a command is recorded. It can mutate the
	// filesystem to simulate the command's side effects.
	OnExec func(cmd Command) error
}

// Exec records the command and returns configured output/error.
func (e *RecordingExecutor) Exec(ctx context.Context, cmd Command) (Result, error) {
	e.mu.Lock()
	e.Commands = append(e.Commands, cmd)
	out := lookup(e.Outputs, cmd)
	err := lookup(e.Errors, cmd)
	hook := e.OnExec
	e.mu.Unlock()

	if err == nil && hook != nil {
		err = hook(cmd)
	}

	res := Result{Stdout: out}
	if err != nil {
		res.ExitCode = ExitCode(err)
	}
	return res, err
}

// Recorded returns a copy of the recorded commands.
func (e *RecordingExecutor) Recorded() []Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Command(nil), e.Commands...)
}

// Reset clears recorded commands.
func (e *RecordingExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = nil
}

func lookup[V any](m map[string]V, cmd Command) V {
	var zero V
	if m == nil {
		return zero
	}
	if len(cmd.Args) > 0 {
		if v, ok := m[cmd.Name+" "+cmd.Args[0]]; ok {
			return v
		}
	}
	if v, ok := m[cmd.Name]; ok {
		return v
	}
	// Allow keys that name the binary by base name only.
	if i := strings.LastIndex(cmd.Name, "/"); i >= 0 {
		return lookup(m, Command{Name: cmd.Name[i+1:], Args: cmd.Args})
	}
	return zero
}
