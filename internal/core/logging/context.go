package logging

import "context"

type contextKey string

const taskFieldsKey contextKey = "task_fields"

// TaskFields identifies the task a log line belongs to.
type TaskFields struct {
	DeliveryID string
	RepoURL    string
	Issue      int
	Mode       string
	User       string
}

// WithTask adds task identifying fields to the context.
func WithTask(ctx context.Context, fields TaskFields) context.Context {
	return context.WithValue(ctx, taskFieldsKey, fields)
}

// GetTask retrieves the task fields from the context.
// The second return value is false if none are present.
func GetTask(ctx context.Context) (TaskFields, bool) {
	f, ok := ctx.Value(taskFieldsKey).(TaskFields)
	return f, ok
}
