package selio

import "context"

// ErrGroup runs a set of functions as sibling tasks and collects
// the first error that occurs. It provides methods to start new
// tasks and wait for all of them to complete.
type ErrGroup interface {
	// Go starts a new task running f with the group's context.
	Go(f func(context.Context) error)
	// Wait parks until all tasks in the group have completed and
	// returns the first error encountered.
	Wait(task *Task) error
}

// errGroup implements the ErrGroup interface. It tracks tasks,
// manages their lifecycles, and collects errors.
type errGroup struct {
	task   *Task           // The task that created this group
	ctx    context.Context // Context shared by all tasks in the group
	cancel func(error)     // Cancels the context with an error
	wg     WaitGroup       // Tracks when all tasks are done
	err    error           // The first error encountered by any task
}

// Group creates a new error group whose tasks are spawned on t's
// scheduler and share a context cancelled on the first error.
func (t *Task) Group() ErrGroup {
	ctx, cancel := context.WithCancelCause(t.ctx)
	return &errGroup{task: t, ctx: ctx, cancel: cancel}
}

// Go starts a new task that runs the given function with the
// group's context. If the function returns an error, the group's
// context is cancelled.
func (g *errGroup) Go(f func(context.Context) error) {
	g.wg.Add(1)
	g.task.sched.Submit(g.ctx, func(ctx context.Context, _ *Task) error {
		defer g.wg.Done()
		if err := f(ctx); err != nil && g.err == nil {
			g.err = err
			g.cancel(g.err)
		}
		return nil
	})
}

// Wait parks until all tasks in the group have completed. It
// returns the first error encountered by any task, or nil if no
// errors occurred.
func (g *errGroup) Wait(task *Task) error {
	g.wg.Wait(task)
	g.cancel(g.err)
	return g.err
}
