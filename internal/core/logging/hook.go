package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook extracts task fields from the event context and adds them to
// log events. Events opt in by calling .Ctx(ctx).
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil || ctx == context.Background() {
		return
	}

	f, ok := GetTask(ctx)
	if !ok {
		return
	}

	e.Str("delivery_id", f.DeliveryID).
		Str("repo_url", f.RepoURL).
		Int("issue", f.Issue).
		Str("mode", f.Mode).
		Str("user", f.User)
}
