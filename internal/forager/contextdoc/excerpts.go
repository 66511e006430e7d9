package contextdoc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TruncationMarker is appended as its own line when a file is cut short.
const TruncationMarker = "... (file truncated)"

// Excerpt is the bounded content of one ranked file.
type Excerpt struct {
	Path      string
	Content   string
	Truncated bool
	Err       error
}

// ReadExcerpts reads each path relative to root, keeping at most maxLines
// lines. A file that cannot be read yields a placeholder carrying the error;
// it never fails the batch. Excerpts keep the order of paths.
func ReadExcerpts(root string, paths []string, maxLines int) []Excerpt {
	excerpts := make([]Excerpt, 0, len(paths))
	for _, p := range paths {
		excerpts = append(excerpts, readExcerpt(root, p, maxLines))
	}
	return excerpts
}

func readExcerpt(root, rel string, maxLines int) Excerpt {
	ex := Excerpt{Path: rel}

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		ex.Err = err
		ex.Content = fmt.Sprintf("[Error reading file: %v]", err)
		return ex
	}

	text := strings.ToValidUTF8(string(data), "")
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	if len(lines) <= maxLines {
		ex.Content = text
		return ex
	}

	kept := strings.Join(lines[:maxLines], "")
	if !strings.HasSuffix(kept, "\n") {
		kept += "\n"
	}
	ex.Content = kept + TruncationMarker + "\n"
	ex.Truncated = true
	return ex
}
