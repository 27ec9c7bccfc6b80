package selio

import (
	"context"
)

// taskContextKey is a unique type used as a key for storing Task
// values in a context.
type taskContextKey struct{}

// withTaskContext creates a new context with the task value stored
// in it. Every task body receives a context built this way.
func withTaskContext(ctx context.Context, task *Task) context.Context {
	return context.WithValue(ctx, taskContextKey{}, task)
}

// TaskFromContext retrieves the Task bound to ctx. Returns the task
// and a boolean indicating whether one was found.
func TaskFromContext(ctx context.Context) (*Task, bool) {
	val, ok := ctx.Value(taskContextKey{}).(*Task)
	return val, ok
}

// MustTaskFromContext retrieves the Task bound to ctx, panicking if
// not found. Useful when the caller expects the context to
// definitely belong to a running task.
func MustTaskFromContext(ctx context.Context) *Task {
	val, ok := TaskFromContext(ctx)
	if !ok {
		panic("selio: task not found in context")
	}
	return val
}
