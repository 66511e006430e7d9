package modes

import (
	"context"
	"fmt"
	"strings"

	"github.com/colonyops/forager/internal/core/task"
	"github.com/colonyops/forager/internal/core/taskerr"
)

// Registry routes tasks to the orchestrator of their mode. It covers every
// declared mode.
type Registry struct {
	orchestrators map[task.Mode]Orchestrator
}

// NewRegistry fails when any mode from task.AllModes has no orchestrator.
func NewRegistry(orchestrators map[task.Mode]Orchestrator) (*Registry, error) {
	var missing []string
	for _, m := range task.AllModes() {
		if orchestrators[m] == nil {
			missing = append(missing, string(m))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("no orchestrator registered for modes: %s", strings.Join(missing, ", "))
	}

	copied := make(map[task.Mode]Orchestrator, len(orchestrators))
	for m, o := range orchestrators {
		copied[m] = o
	}
	return &Registry{orchestrators: copied}, nil
}

// Default wires the built-in orchestrators.
func Default(deps Deps) (*Registry, error) {
	return NewRegistry(map[task.Mode]Orchestrator{
		task.ModeQuickFix:     NewQuickFix(deps),
		task.ModePlan:         NewPlan(deps),
		task.ModePlanApproval: NewUnimplemented(task.ModePlanApproval),
		task.ModeRefine:       NewUnimplemented(task.ModeRefine),
	})
}

// Route runs t through its mode's orchestrator.
func (r *Registry) Route(ctx context.Context, t task.Task, tr *Tracker) error {
	o, ok := r.orchestrators[t.Mode]
	if !ok {
		return taskerr.Newf(taskerr.KindValidation, "route", "unknown mode %q", t.Mode)
	}
	return o.Run(ctx, t, tr)
}
