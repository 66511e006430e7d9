package contextdoc

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/colonyops/forager/internal/core/ignore"
)

// Score weights per keyword.
const (
	weightFilename = 5
	weightPath     = 2
	weightContent  = 1
)

// ScoredFile is a candidate file and its relevance score.
type ScoredFile struct {
	Path  string // slash-separated, relative to the workspace root
	Score int
}

// Paths returns the paths of files in order.
func Paths(files []ScoredFile) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

// RankFiles walks root once in lexical order and scores every recognized code
// file against keywords. Each keyword adds independently for a filename match,
// a path match and a match in the first sampleBytes of content. Files scoring
// zero are dropped; the rest sort by descending score with ties kept in walk
// order. At most maxFiles are returned.
func RankFiles(root string, keywords []string, maxFiles, sampleBytes int, matcher *ignore.Matcher) ([]ScoredFile, error) {
	if len(keywords) == 0 || maxFiles <= 0 {
		return nil, nil
	}

	var scored []ScoredFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable entries are skipped, not fatal.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}

		if d.IsDir() {
			if path != root && matcher.SkipDir(rel) {
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !ignore.IsCode(d.Name()) || matcher.SkipFile(rel) {
			return nil
		}

		rel = filepath.ToSlash(rel)
		if s := scoreFile(path, rel, keywords, sampleBytes); s > 0 {
			scored = append(scored, ScoredFile{Path: rel, Score: s})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if len(scored) > maxFiles {
		scored = scored[:maxFiles]
	}
	return scored, nil
}

func scoreFile(path, rel string, keywords []string, sampleBytes int) int {
	name := strings.ToLower(filepath.Base(rel))
	lowerRel := strings.ToLower(rel)
	content := strings.ToLower(readSample(path, sampleBytes))

	score := 0
	for _, k := range keywords {
		if strings.Contains(name, k) {
			score += weightFilename
		}
		if strings.Contains(lowerRel, k) {
			score += weightPath
		}
		if content != "" && strings.Contains(content, k) {
			score += weightContent
		}
	}
	return score
}

// readSample returns up to n bytes of the file, or "" when it cannot be read.
func readSample(path string, n int) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return ""
	}
	return string(buf[:read])
}
