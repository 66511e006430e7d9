package workspace

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/colonyops/forager/internal/core/taskerr"
)

const (
	branchMid  = "├── "
	branchLast = "└── "
	indentMid  = "│   "
	indentLast = "    "
)

// FileTree renders the workspace as an indented tree headed by name, or "."
// when name is empty. Directories sort before files and names sort bytewise,
// so equal trees render identically. Entries nested deeper than maxDepth are
// omitted. Unreadable subdirectories are rendered without children.
func (m *Manager) FileTree(root, name string, maxDepth int) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", taskerr.New(taskerr.KindWorkspace, "file tree", err)
	}

	var b strings.Builder
	if name == "" {
		name = "."
	}
	b.WriteString(name)
	b.WriteString("/\n")
	m.writeTree(&b, root, "", "", entries, 0, maxDepth)
	return b.String(), nil
}

func (m *Manager) writeTree(b *strings.Builder, dir, rel, prefix string, entries []os.DirEntry, depth, maxDepth int) {
	if depth > maxDepth {
		return
	}

	visible := entries[:0:0]
	for _, e := range entries {
		childRel := filepath.Join(rel, e.Name())
		if e.IsDir() && m.ignore.SkipDir(childRel) {
			continue
		}
		if !e.IsDir() && m.ignore.SkipFile(childRel) {
			continue
		}
		visible = append(visible, e)
	}

	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].IsDir() != visible[j].IsDir() {
			return visible[i].IsDir()
		}
		return visible[i].Name() < visible[j].Name()
	})

	for i, e := range visible {
		last := i == len(visible)-1

		connector, indent := branchMid, indentMid
		if last {
			connector, indent = branchLast, indentLast
		}

		b.WriteString(prefix)
		b.WriteString(connector)
		b.WriteString(e.Name())
		if !e.IsDir() {
			b.WriteByte('\n')
			continue
		}
		b.WriteString("/\n")

		if depth+1 > maxDepth {
			continue
		}

		childDir := filepath.Join(dir, e.Name())
		children, err := os.ReadDir(childDir)
		if err != nil {
			m.log.Debug().Err(err).Str("path", childDir).Msg("skipping unreadable directory")
			continue
		}
		m.writeTree(b, childDir, filepath.Join(rel, e.Name()), prefix+indent, children, depth+1, maxDepth)
	}
}
