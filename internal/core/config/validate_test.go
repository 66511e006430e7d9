package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) Config {
	t.Helper()

	orig := lookPathFunc
	lookPathFunc = func(file string) (string, error) { return "/usr/bin/" + file, nil }
	t.Cleanup(func() { lookPathFunc = orig })

	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestValidateDeep_Defaults(t *testing.T) {
	cfg := validConfig(t)
	require.NoError(t, cfg.ValidateDeep(""))
}

func TestValidateDeep_InvalidMessageTemplate(t *testing.T) {
	cfg := validConfig(t)
	cfg.Templates.PlanPRTitle = "{{ .Issue.Title }"
	cfg.Templates.QuickFixComment = "{{ .Missing }}"

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Len(t, fieldErrs, 2)
	assert.Equal(t, "templates.plan_pr_title", fieldErrs[0].Field)
	assert.Equal(t, "templates.quickfix_comment", fieldErrs[1].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "template error")
}

func TestValidateDeep_InvalidCodeAgentArg(t *testing.T) {
	cfg := validConfig(t)
	cfg.CodeAgent.Args = []string{"--model", "{{ .Nope }}"}

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.ValidateDeep(""), &fieldErrs)
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "code_agent.args[1]", fieldErrs[0].Field)
}

func TestValidateDeep_InvalidIgnoreGlob(t *testing.T) {
	cfg := validConfig(t)
	cfg.Context.Ignore = []string{"docs/**", "[unclosed"}

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.ValidateDeep(""), &fieldErrs)
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "context.ignore[1]", fieldErrs[0].Field)
}

func TestValidateDeep_MissingExecutables(t *testing.T) {
	cfg := validConfig(t)
	lookPathFunc = func(file string) (string, error) {
		if file == "aider" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + file, nil
	}

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.ValidateDeep(""), &fieldErrs)
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "code_agent.command", fieldErrs[0].Field)
}

func TestValidateDeep_WorkspaceRootIsFile(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(cfg.DataDir, "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	cfg.Workspace.Root = file

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.ValidateDeep(""), &fieldErrs)
	assert.Equal(t, "workspace.root", fieldErrs[0].Field)
}

func TestValidateDeep_ConfigPathIsDirectory(t *testing.T) {
	cfg := validConfig(t)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.ValidateDeep(cfg.DataDir), &fieldErrs)
	assert.Equal(t, "config_file", fieldErrs[0].Field)
}

func TestWarnings(t *testing.T) {
	cfg := validConfig(t)
	cfg.LLM.Provider = ProviderGemini
	cfg.Worker.Slots = 4

	warnings := cfg.Warnings()

	items := make([]string, 0, len(warnings))
	for _, w := range warnings {
		items = append(items, w.Item)
	}
	assert.Equal(t, []string{"token", "api_key", "prefetch"}, items)

	cfg.GitHub.Token = "tok"
	cfg.LLM.APIKey = "key"
	cfg.Queue.Prefetch = 4
	assert.Empty(t, cfg.Warnings())
}
