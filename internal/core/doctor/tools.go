package doctor

import (
	"context"
	"os/exec"
	"path/filepath"
)

// lookPathFunc is the function used to find executables on PATH.
// Package-level variable to allow test overrides.
var lookPathFunc = exec.LookPath

// Tool is an external binary the worker shells out to.
type Tool struct {
	Label    string
	Command  string
	Optional bool
}

// ToolsCheck verifies that required external tools are available on $PATH.
type ToolsCheck struct {
	tools []Tool
}

// NewToolsCheck creates a new tools check.
func NewToolsCheck(tools ...Tool) *ToolsCheck {
	return &ToolsCheck{tools: tools}
}

func (c *ToolsCheck) Name() string {
	return "Tools"
}

func (c *ToolsCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	for _, tool := range c.tools {
		label := tool.Label
		if label == "" {
			label = filepath.Base(tool.Command)
		}

		path, err := lookPathFunc(tool.Command)
		if err == nil {
			result.Items = append(result.Items, CheckItem{Label: label, Status: StatusPass, Detail: path})
			continue
		}

		item := CheckItem{Label: label, Status: StatusFail, Detail: tool.Command + " not found on PATH"}
		if tool.Optional {
			item.Status = StatusWarn
		}
		result.Items = append(result.Items, item)
	}

	return result
}
