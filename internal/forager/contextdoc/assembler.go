// Package contextdoc selects the files most relevant to an issue and renders
// them, with the issue and a repository tree, into a single bounded document.
package contextdoc

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/forager/internal/core/host"
	"github.com/colonyops/forager/internal/core/ignore"
	"github.com/colonyops/forager/internal/core/taskerr"
)

// TreeRenderer renders a depth-bounded tree of a workspace.
type TreeRenderer interface {
	FileTree(root, name string, maxDepth int) (string, error)
}

// Options bounds the document.
type Options struct {
	MaxFiles    int
	MaxLines    int
	SampleBytes int
	TreeDepth   int
	Ignore      []string
}

// Document is a rendered context document and what went into it.
type Document struct {
	Text     string
	Keywords []string
	Files    []ScoredFile
	Version  int
}

// Assembler builds context documents.
type Assembler struct {
	log     zerolog.Logger
	tree    TreeRenderer
	opts    Options
	matcher *ignore.Matcher
}

// NewAssembler creates an Assembler.
func NewAssembler(log zerolog.Logger, tree TreeRenderer, opts Options) *Assembler {
	return &Assembler{
		log:     log.With().Str("component", "contextdoc").Logger(),
		tree:    tree,
		opts:    opts,
		matcher: ignore.New(opts.Ignore...),
	}
}

// Build ranks the files under root against the issue and renders the document.
// The file tree is headed by name rather than the checkout directory.
func (a *Assembler) Build(ctx context.Context, root, name string, issue host.IssueRecord) (Document, error) {
	start := time.Now()

	tree, err := a.tree.FileTree(root, name, a.opts.TreeDepth)
	if err != nil {
		return Document{}, taskerr.New(taskerr.KindWorkspace, "build context", err)
	}

	keywords := ExtractKeywords(issue.Title, issue.Body)

	files, err := RankFiles(root, keywords, a.opts.MaxFiles, a.opts.SampleBytes, a.matcher)
	if err != nil {
		return Document{}, taskerr.New(taskerr.KindWorkspace, "build context", err)
	}

	excerpts := ReadExcerpts(root, Paths(files), a.opts.MaxLines)
	for _, ex := range excerpts {
		if ex.Err != nil {
			a.log.Warn().Ctx(ctx).Err(ex.Err).Str("file", ex.Path).Msg("file excerpt unreadable")
		}
	}

	doc := Document{
		Text:     Render(issue, tree, excerpts),
		Keywords: keywords,
		Files:    files,
		Version:  DocumentVersion,
	}

	scores := zerolog.Dict()
	for _, f := range files {
		scores.Int(f.Path, f.Score)
	}
	a.log.Info().Ctx(ctx).
		Strs("keywords", keywords).
		Dict("scores", scores).
		Int("bytes", len(doc.Text)).
		Int("version", doc.Version).
		Dur("took", time.Since(start)).
		Msg("context built")

	return doc, nil
}
