package contextdoc

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/colonyops/forager/internal/core/host"
)

// DocumentVersion identifies the layout produced by Render. Plan prompts are
// tuned against it; bump it whenever the layout changes.
const DocumentVersion = 1

// Render builds the context document: the issue, the repository tree, then one
// fenced block per excerpt. The layout is fixed.
func Render(issue host.IssueRecord, tree string, excerpts []Excerpt) string {
	var b strings.Builder

	b.WriteString("# Issue Information\n\n")
	fmt.Fprintf(&b, "**Issue #%d: %s**\n\n", issue.Number, issue.Title)
	fmt.Fprintf(&b, "**Status:** %s\n", issue.State)
	fmt.Fprintf(&b, "**Author:** %s\n", issue.Author)
	fmt.Fprintf(&b, "**Labels:** %s\n\n", labelList(issue.Labels))
	b.WriteString("## Description\n\n")
	if strings.TrimSpace(issue.Body) == "" {
		b.WriteString("No description provided.\n\n")
	} else {
		b.WriteString(strings.TrimRight(issue.Body, "\n"))
		b.WriteString("\n\n")
	}

	b.WriteString("# Repository Structure\n\n```\n")
	b.WriteString(strings.TrimRight(tree, "\n"))
	b.WriteString("\n```\n\n")

	b.WriteString("# Relevant Files\n\n")
	if len(excerpts) == 0 {
		b.WriteString("No relevant files found.\n")
	}
	for _, ex := range excerpts {
		fmt.Fprintf(&b, "## %s\n\n```%s\n", ex.Path, LanguageTag(ex.Path))
		b.WriteString(strings.TrimRight(ex.Content, "\n"))
		b.WriteString("\n```\n\n")
	}

	return b.String()
}

func labelList(labels []string) string {
	if len(labels) == 0 {
		return "None"
	}
	return strings.Join(labels, ", ")
}

// LanguageTag returns the fence language for path, taken from the chroma
// lexer registry and falling back to the bare extension.
func LanguageTag(path string) string {
	if l := lexers.Match(filepath.Base(path)); l != nil {
		if aliases := l.Config().Aliases; len(aliases) > 0 {
			return aliases[0]
		}
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
