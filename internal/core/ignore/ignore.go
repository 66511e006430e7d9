// Package ignore decides which repository paths are skipped when a workspace
// is rendered or searched.
package ignore

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var defaultDirs = map[string]struct{}{
	".git":          {},
	"__pycache__":   {},
	"node_modules":  {},
	".venv":         {},
	"venv":          {},
	"dist":          {},
	"build":         {},
	".pytest_cache": {},
	".mypy_cache":   {},
	".tox":          {},
}

var codeExtensions = map[string]struct{}{
	".py": {}, ".js": {}, ".ts": {}, ".tsx": {}, ".jsx": {},
	".java": {}, ".go": {}, ".rs": {}, ".cpp": {}, ".c": {},
	".h": {}, ".hpp": {}, ".cs": {}, ".rb": {}, ".php": {},
	".swift": {}, ".kt": {}, ".scala": {}, ".sh": {}, ".sql": {},
}

// IsCode reports whether name has a recognized source code extension.
func IsCode(name string) bool {
	_, ok := codeExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Matcher skips the fixed set of metadata, dependency and build directories
// plus any extra doublestar patterns. Patterns match slash-separated paths
// relative to the repository root.
type Matcher struct {
	patterns []string
}

// New returns a Matcher with extra patterns. Invalid patterns never match;
// config validation reports them.
func New(patterns ...string) *Matcher {
	return &Matcher{patterns: patterns}
}

// SkipDir reports whether the directory at rel should not be descended into.
func (m *Matcher) SkipDir(rel string) bool {
	rel = filepath.ToSlash(rel)
	if _, ok := defaultDirs[path.Base(rel)]; ok {
		return true
	}
	return m.matches(rel) || m.matches(rel+"/")
}

// SkipFile reports whether the file at rel should be left out.
func (m *Matcher) SkipFile(rel string) bool {
	return m.matches(filepath.ToSlash(rel))
}

func (m *Matcher) matches(rel string) bool {
	if m == nil {
		return false
	}
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
