package selio

import (
	"context"

	"github.com/webriots/coro"
)

// TaskFunc is the body of a task. It runs synchronously between
// suspension points; returning a non-nil error marks the task
// failed.
type TaskFunc func(ctx context.Context, task *Task) error

type taskState uint8

const (
	taskRunnable taskState = iota
	taskCompleted
	taskFailed
)

// Result carries the outcome of a completed Event back into the
// task that awaited it. Exactly one variant field is meaningful,
// matching the event: Conn and Peer for accept, Data for receive
// (empty means the peer closed the connection), N for send. Err is
// set instead when the deferred operation itself failed.
type Result struct {
	Conn *Socket
	Peer string
	Data []byte
	N    int
	Err  error
}

// Task is a suspendable unit of computation. It runs on its own
// coroutine and makes progress only when the scheduler resumes it,
// either with the start value or with the Result of the Event it
// last yielded. A task has at most one outstanding Event at any
// time.
type Task struct {
	ctx     context.Context
	yield   func(*Event) Result
	suspend func() Result
	resume  func(Result) (*Event, bool)
	cancel  func()
	sched   *Scheduler
	state   taskState
	err     error
}

func newTask(ctx context.Context, fn TaskFunc, sched *Scheduler) *Task {
	task := &Task{sched: sched}
	task.ctx = withTaskContext(ctx, task)

	resume, cancel := coro.New(
		func(yield func(*Event) Result, suspend func() Result) (z *Event) {
			task.yield = yield
			task.suspend = suspend
			task.err = fn(task.ctx, task)
			return
		},
	)

	task.resume = resume
	task.cancel = cancel
	return task
}

// IO suspends the task until ev's deferred operation has been
// executed against its socket, and returns that operation's Result.
// The calling task must own ev's socket; two tasks awaiting one
// descriptor is a contract violation the scheduler fails loudly on.
func (t *Task) IO(ev *Event) Result {
	return t.yield(ev)
}

// park suspends without an Event. Whichever sync primitive parked
// the task holds it and hands it back to the ready queue on
// release.
func (t *Task) park() {
	t.suspend()
}

// Accept awaits a pending connection on s and returns the accepted
// socket and peer address.
func (t *Task) Accept(s *Socket) (*Socket, string, error) {
	res := t.IO(s.Accept())
	return res.Conn, res.Peer, res.Err
}

// Receive awaits up to n bytes from s. An empty slice with a nil
// error means the peer closed the connection.
func (t *Task) Receive(s *Socket, n int) ([]byte, error) {
	res := t.IO(s.Receive(n))
	return res.Data, res.Err
}

// Send awaits writability of s and writes p, returning the number
// of bytes actually written, which may be less than len(p). See
// SendAll.
func (t *Task) Send(s *Socket, p []byte) (int, error) {
	res := t.IO(s.Send(p))
	return res.N, res.Err
}

// SendAll sends p in full, re-issuing a Send event for the
// remainder after every short write.
func (t *Task) SendAll(s *Socket, p []byte) error {
	for len(p) > 0 {
		n, err := t.Send(s, p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// Spawn submits fn as a new task on the scheduler that owns t. The
// new task inherits t's context and joins the tail of the ready
// queue, so it runs once the current drain pass reaches it.
func (t *Task) Spawn(fn TaskFunc) {
	t.sched.Submit(t.ctx, fn)
}

// Context returns the context the task body was started with.
func (t *Task) Context() context.Context { return t.ctx }

func (t *Task) terminated() bool { return t.state != taskRunnable }
