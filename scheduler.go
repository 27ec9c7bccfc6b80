package selio

import (
	"context"
	"fmt"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog"
)

// waiter pairs a yielded Event with the task that owns it while the
// event's descriptor is being waited on.
type waiter struct {
	ev   *Event
	task *Task
}

// resumption is one ready-queue entry: a task due to run and the
// value it resumes with.
type resumption struct {
	task  *Task
	value Result
}

// Scheduler owns the ready queue and the per-direction wait tables
// and drives every task from a single goroutine. All state mutates
// on the scheduler's own call stack; nothing here is safe for
// concurrent use.
type Scheduler struct {
	ready     deque.Deque[resumption]
	readWait  map[int]waiter
	writeWait map[int]waiter
	running   int
	poller    Poller
	log       zerolog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPoller substitutes the readiness primitive, mainly for tests.
func WithPoller(p Poller) Option {
	return func(s *Scheduler) { s.poller = p }
}

// WithLogger sets the logger used for task failures and lifecycle
// debug output. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// New constructs a Scheduler with the platform's default readiness
// poller.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		readWait:  make(map[int]waiter),
		writeWait: make(map[int]waiter),
		poller:    defaultPoller(),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit enqueues fn as a new task with the start value. It may be
// called before Run and by a running task (see Task.Spawn).
func (s *Scheduler) Submit(ctx context.Context, fn TaskFunc) {
	task := newTask(ctx, fn, s)
	s.ready.PushBack(resumption{task: task})
	s.running++
}

// addReady queues a task for resumption with the value v.
func (s *Scheduler) addReady(t *Task, v Result) {
	s.ready.PushBack(resumption{task: t, value: v})
}

// Running reports the number of not-yet-terminated tasks.
func (s *Scheduler) Running() int { return s.running }

// Run drives the scheduling loop until every task has terminated
// and returns nil; that is the graceful-shutdown condition, not an
// error. ctx is checked only between cycles, since the readiness
// poll blocks with no timeout. A poller failure aborts the loop and
// cancels all outstanding tasks.
func (s *Scheduler) Run(ctx context.Context) error {
	for s.running > 0 {
		if err := ctx.Err(); err != nil {
			s.cancelAll()
			return err
		}
		s.runReady()
		if s.running == 0 {
			break
		}
		if err := s.poll(); err != nil {
			s.cancelAll()
			return err
		}
	}
	return nil
}

// runReady drains the ready queue in FIFO order. Tasks enqueued
// during the pass land at the tail and still run within the same
// pass.
func (s *Scheduler) runReady() {
	for s.ready.Len() > 0 {
		r := s.ready.PopFront()
		s.step(r.task, r.value)
	}
}

// step resumes one task and routes its outcome.
func (s *Scheduler) step(t *Task, v Result) {
	if t.terminated() {
		panic(fmt.Sprintf("selio: resume of terminated task %p", t))
	}

	ev, alive, fault := s.resumeTask(t, v)

	switch {
	case fault != nil:
		t.state = taskFailed
		s.running--
		s.log.Error().Err(fault).Msg("task failed")
	case !alive && t.err != nil:
		t.state = taskFailed
		s.running--
		s.log.Error().Err(t.err).Msg("task failed")
	case !alive:
		t.state = taskCompleted
		s.running--
	case ev != nil:
		s.block(ev, t)
	default:
		// Alive with no event: parked on a sync primitive, which
		// holds the task until it releases it back to the ready
		// queue.
	}
}

// resumeTask runs t up to its next suspension point. A panic
// escaping the task body is converted into a fault so that one task
// cannot take down the scheduler or its siblings.
func (s *Scheduler) resumeTask(t *Task, v Result) (ev *Event, alive bool, fault error) {
	defer func() {
		if p := recover(); p != nil {
			ev, alive = nil, false
			fault = fmt.Errorf("task panic: %v", p)
		}
	}()
	ev, alive = t.resume(v)
	return ev, alive, nil
}

// block files a suspended task under its event's descriptor. The
// table is fixed by the event variant: accept and receive wait for
// readability, send for writability. A descriptor already present
// in either table means two tasks are racing on one socket, which
// the design never permits.
func (s *Scheduler) block(ev *Event, t *Task) {
	fd := ev.Descriptor()
	if _, dup := s.readWait[fd]; dup {
		panic(fmt.Sprintf("selio: descriptor %d already awaited for read", fd))
	}
	if _, dup := s.writeWait[fd]; dup {
		panic(fmt.Sprintf("selio: descriptor %d already awaited for write", fd))
	}

	switch ev.kind {
	case eventAccept, eventReceive:
		s.readWait[fd] = waiter{ev: ev, task: t}
	case eventSend:
		s.writeWait[fd] = waiter{ev: ev, task: t}
	default:
		panic(fmt.Sprintf("selio: unknown event kind %d", ev.kind))
	}
}

// poll blocks on the union of waited-on descriptors and turns every
// actionable one into a ready-queue entry by executing its event's
// deferred operation.
func (s *Scheduler) poll() error {
	if len(s.readWait) == 0 && len(s.writeWait) == 0 {
		panic(fmt.Sprintf("selio: %d tasks parked with no descriptor to wait on", s.running))
	}

	read := make([]int, 0, len(s.readWait))
	for fd := range s.readWait {
		read = append(read, fd)
	}
	write := make([]int, 0, len(s.writeWait))
	for fd := range s.writeWait {
		write = append(write, fd)
	}

	readable, writable, err := s.poller.Wait(read, write)
	if err != nil {
		return fmt.Errorf("readiness poll: %w", err)
	}

	for _, fd := range readable {
		w, ok := s.readWait[fd]
		if !ok {
			continue
		}
		delete(s.readWait, fd)
		s.complete(w.ev, w.task)
	}
	for _, fd := range writable {
		w, ok := s.writeWait[fd]
		if !ok {
			continue
		}
		delete(s.writeWait, fd)
		s.complete(w.ev, w.task)
	}
	return nil
}

// complete executes ev's deferred operation, now known not to
// block, and re-queues the owning task with the outcome. Operation
// failures become the task's Result.Err; they never stop the loop.
func (s *Scheduler) complete(ev *Event, t *Task) {
	switch ev.kind {
	case eventAccept:
		c, peer, err := ev.sock.conn.Accept()
		if err != nil {
			s.addReady(t, Result{Err: err})
			return
		}
		s.log.Debug().Str("peer", peer).Msg("connection accepted")
		s.addReady(t, Result{Conn: NewSocket(c), Peer: peer})
	case eventReceive:
		buf := make([]byte, ev.nbytes)
		n, err := ev.sock.conn.Read(buf)
		if err != nil {
			s.addReady(t, Result{Err: err})
			return
		}
		s.addReady(t, Result{Data: buf[:n]})
	case eventSend:
		n, err := ev.sock.conn.Write(ev.buf)
		if err != nil {
			s.addReady(t, Result{Err: err})
			return
		}
		s.addReady(t, Result{N: n})
	default:
		panic(fmt.Sprintf("selio: unknown event kind %d", ev.kind))
	}
}

// cancelAll tears down every outstanding task after a fatal loop
// error. Wait-table entries are dropped; their deferred operations
// never run.
func (s *Scheduler) cancelAll() {
	for s.ready.Len() > 0 {
		r := s.ready.PopFront()
		r.task.cancel()
	}
	for fd, w := range s.readWait {
		w.task.cancel()
		delete(s.readWait, fd)
	}
	for fd, w := range s.writeWait {
		w.task.cancel()
		delete(s.writeWait, fd)
	}
	s.running = 0
}
