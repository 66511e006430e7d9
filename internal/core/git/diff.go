package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// DiffMode specifies the type of diff to retrieve.
type DiffMode int

const (
	// DiffUncommitted gets diffs for all uncommitted changes (working directory + staged).
	DiffUncommitted DiffMode = iota
	// DiffStaged gets diffs for only staged changes.
	DiffStaged
	// DiffSince gets diffs between a base revision and HEAD.
	DiffSince
)

// DiffOptions specifies options for retrieving a git diff.
type DiffOptions struct {
	Mode DiffMode
	Base string // Required for DiffSince mode
}

// GetDiff retrieves a git diff based on the specified mode.
// Returns the unified diff as a string.
func (e *Executor) GetDiff(ctx context.Context, dir string, opts DiffOptions) (string, error) {
	var args []string

	switch opts.Mode {
	case DiffUncommitted:
		args = []string{"diff", "HEAD"}
	case DiffStaged:
		args = []string{"diff", "--staged"}
	case DiffSince:
		if opts.Base == "" {
			return "", fmt.Errorf("base revision required for DiffSince mode")
		}
		args = []string{"diff", opts.Base + "..HEAD"}
	default:
		return "", fmt.Errorf("unknown diff mode: %d", opts.Mode)
	}

	out, err := e.run(ctx, dir, 0, args...)
	if err != nil {
		return "", fmt.Errorf("git diff: %w", err)
	}

	return out, nil
}

// FileChange summarizes one file of a parsed diff.
type FileChange struct {
	Path      string
	Status    string // added, deleted, renamed, modified
	Additions int64
	Deletions int64
	Binary    bool
}

// ParseChanges parses a unified diff into per-file change summaries in diff order.
func ParseChanges(diff string) ([]FileChange, error) {
	if strings.TrimSpace(diff) == "" {
		return nil, nil
	}

	files, _, err := gitdiff.Parse(strings.NewReader(diff))
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}

	changes := make([]FileChange, 0, len(files))
	for _, f := range files {
		fc := FileChange{
			Path:   f.NewName,
			Status: "modified",
			Binary: f.IsBinary,
		}

		switch {
		case f.IsNew:
			fc.Status = "added"
		case f.IsDelete:
			fc.Status = "deleted"
			fc.Path = f.OldName
		case f.IsRename:
			fc.Status = "renamed"
		}

		for _, frag := range f.TextFragments {
			fc.Additions += frag.LinesAdded
			fc.Deletions += frag.LinesDeleted
		}

		changes = append(changes, fc)
	}

	return changes, nil
}
