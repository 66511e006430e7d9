// Package tmpl provides text template rendering for commands, prompts and
// host messages.
package tmpl

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// shellQuote returns a shell-safe quoted string. It wraps the string in single
// quotes and escapes any existing single quotes using the '\” technique.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	// Replace ' with '\'' (end quote, escaped quote, start quote)
	escaped := strings.ReplaceAll(s, "'", `'\''`)
	return "'" + escaped + "'"
}

// truncate shortens s to at most n runes, appending "..." when cut.
func truncate(n int, s string) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func stringOrDefault(def, s string) string {
	if strings.TrimSpace(s) != "" {
		return s
	}
	return def
}

var funcs = template.FuncMap{
	"shq":      shellQuote,
	"join":     strings.Join,
	"trim":     strings.TrimSpace,
	"truncate": truncate,
	"or_else":  stringOrDefault,
}

// Render executes a Go template string with the given data.
// Returns an error if the template is invalid or references undefined keys.
//
// Available template functions:
//   - shq: Shell-quote a string for safe use in shell commands
//   - join: Join string slice with separator (e.g., join .Labels ", ")
//   - trim: Trim surrounding whitespace
//   - truncate: Limit a string to n runes (e.g., truncate 72 .Title)
//   - or_else: Fall back to a default for blank strings (e.g., or_else "None" .Body)
func Render(tmpl string, data any) (string, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
