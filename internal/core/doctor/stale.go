package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/forager/internal/forager/workspace"
)

// Sweeper finds and removes workspace directories no task owns.
type Sweeper interface {
	Stale(olderThan time.Duration) ([]workspace.StaleWorkspace, error)
	Cleanup(id string)
}

// StaleWorkspacesCheck reports workspace directories left behind by a worker
// that died mid-task. With autofix they are removed.
type StaleWorkspacesCheck struct {
	sweeper   Sweeper
	olderThan time.Duration
	autofix   bool
}

// NewStaleWorkspacesCheck creates a stale workspace check.
func NewStaleWorkspacesCheck(s Sweeper, olderThan time.Duration, autofix bool) *StaleWorkspacesCheck {
	return &StaleWorkspacesCheck{sweeper: s, olderThan: olderThan, autofix: autofix}
}

func (c *StaleWorkspacesCheck) Name() string {
	return "Stale Workspaces"
}

func (c *StaleWorkspacesCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	stale, err := c.sweeper.Stale(c.olderThan)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "workspace root",
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}

	if len(stale) == 0 {
		result.Items = append(result.Items, CheckItem{
			Label:  "workspaces",
			Status: StatusPass,
			Detail: "no stale workspaces",
		})
		return result
	}

	for _, ws := range stale {
		age := time.Since(ws.ModTime).Round(time.Minute)
		if c.autofix {
			c.sweeper.Cleanup(ws.ID)
			result.Items = append(result.Items, CheckItem{
				Label:  ws.ID,
				Status: StatusPass,
				Detail: fmt.Sprintf("removed (idle %s)", age),
			})
			continue
		}

		result.Items = append(result.Items, CheckItem{
			Label:   ws.ID,
			Status:  StatusWarn,
			Detail:  fmt.Sprintf("idle %s at %s", age, ws.Path),
			Fixable: true,
		})
	}

	return result
}
