package config

import (
	"fmt"
	"os"
	"os/exec"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"

	"github.com/colonyops/forager/internal/core/git"
	"github.com/colonyops/forager/internal/core/host"
	"github.com/colonyops/forager/pkg/tmpl"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// lookPathFunc is the function used to find executables. Tests override it.
var lookPathFunc = exec.LookPath

// ValidateDeep adds filesystem and executable checks on top of Validate. The
// configPath argument specifies the config file location to validate (empty
// string skips the config file check).
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return c.validateFileAccess(configPath)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.GitHub.Token == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "GitHub",
			Item:     "token",
			Message:  "no token configured; private repositories cannot be cloned and host API calls will be rate limited",
		})
	}

	if c.LLM.Provider == ProviderGemini && c.LLM.APIKey == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "LLM",
			Item:     "api_key",
			Message:  "gemini provider selected without an API key",
		})
	}

	if c.Worker.Slots > 1 && c.Queue.Prefetch < c.Worker.Slots {
		warnings = append(warnings, ValidationWarning{
			Category: "Queue",
			Item:     "prefetch",
			Message:  fmt.Sprintf("prefetch %d is below worker slots %d; some slots will stay idle", c.Queue.Prefetch, c.Worker.Slots),
		})
	}

	return warnings
}

// validateFileAccess checks config file, workspace directory, and executables.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("git.path", c.Git.Path, executableExists),
		criterio.Run("code_agent.command", c.CodeAgent.Command, executableExists),
		criterio.Run("workspace.root", c.WorkspaceRoot(), isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// executableExists validates that path resolves to an executable.
func executableExists(path string) error {
	if path == "" {
		return nil
	}
	if _, err := lookPathFunc(path); err != nil {
		return fmt.Errorf("executable not found: %s", path)
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func (c *Config) validateIgnoreGlobs() error {
	var errs criterio.FieldErrorsBuilder
	for i, pattern := range c.Context.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(fmt.Sprintf("context.ignore[%d]", i), fmt.Errorf("invalid glob %q", pattern))
		}
	}
	return errs.ToError()
}

// validateMessageTemplates renders every message template against sample data.
func (c *Config) validateMessageTemplates() error {
	named := c.Templates.named()
	fields := make([]string, 0, len(named))
	for field := range named {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	data := sampleMessageData()

	var errs criterio.FieldErrorsBuilder
	for _, field := range fields {
		if err := validateTemplate(named[field], data); err != nil {
			errs = errs.Append(field, fmt.Errorf("template error: %w", err))
		}
	}
	return errs.ToError()
}

func (c *Config) validateCodeAgentArgs() error {
	data := CodeAgentTemplateData{Model: c.CodeAgent.Model, Workspace: "/tmp/workspace", Issue: 1}

	var errs criterio.FieldErrorsBuilder
	for i, arg := range c.CodeAgent.Args {
		if err := validateTemplate(arg, data); err != nil {
			errs = errs.Append(fmt.Sprintf("code_agent.args[%d]", i), fmt.Errorf("template error: %w", err))
		}
	}
	return errs.ToError()
}

func sampleMessageData() MessageData {
	return MessageData{
		Issue: host.IssueRecord{
			Number: 1,
			Title:  "Sample issue",
			Body:   "Sample body",
			State:  "open",
			Labels: []string{"bug"},
			Author: "octocat",
			URL:    "https://github.com/org/repo/issues/1",
		},
		Repo:        host.Repository{Owner: "org", Name: "repo", DefaultBranch: "main"},
		Branch:      "agent/plan-issue-1",
		Mode:        "plan",
		User:        "octocat",
		Plan:        "1. Do the thing",
		PullRequest: host.PullRequest{Number: 2, URL: "https://github.com/org/repo/pull/2"},
		Changes:     []git.FileChange{{Path: "main.go", Status: "modified", Additions: 1}},
	}
}

// validateTemplate checks that a template string is valid by rendering it with test data.
func validateTemplate(tmplStr string, data any) error {
	_, err := tmpl.Render(tmplStr, data)
	return err
}
