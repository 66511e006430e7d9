package doctor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/forager/internal/core/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Git.Path = "/bin/sh"
	cfg.CodeAgent.Command = "/bin/sh"
	cfg.GitHub.Token = "ghs_token"
	return &cfg
}

func TestConfigCheck_Valid(t *testing.T) {
	result := NewConfigCheck(testConfig(t), "").Run(context.Background())

	assert.Equal(t, "Configuration", result.Name)
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusPass, result.Items[0].Status)
	assert.Equal(t, "defaults", result.Items[0].Label)
}

func TestConfigCheck_FieldErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Templates.PlanPRTitle = "{{ .Issue.Title }"

	result := NewConfigCheck(cfg, "").Run(context.Background())

	require.NotEmpty(t, result.Items)
	assert.Equal(t, "templates.plan_pr_title", result.Items[0].Label)
	assert.Equal(t, StatusFail, result.Items[0].Status)
}

func TestConfigCheck_Warnings(t *testing.T) {
	cfg := testConfig(t)
	cfg.GitHub.Token = ""

	result := NewConfigCheck(cfg, "").Run(context.Background())

	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusWarn, result.Items[0].Status)
	assert.Equal(t, "GitHub.token", result.Items[0].Label)
}
