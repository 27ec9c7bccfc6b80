package selio

import "github.com/gammazero/deque"

// sema is the parking lot shared by the cooperative sync
// primitives. A task that cannot proceed suspends here without an
// Event; release hands the longest-waiting task back to its
// scheduler's ready queue.
type sema struct {
	noCopy noCopy             // Prevents copying of the semaphore
	v      uint32             // Value (available resources)
	w      deque.Deque[*Task] // Waiting tasks queue
}

// acquire attempts to acquire the semaphore for the given task. If
// no resources are available, the task is parked on the waiting
// queue.
func (s *sema) acquire(t *Task) {
	if s.v > 0 {
		s.v--
		return
	}

	s.w.PushBack(t)
	t.park()
}

// release releases the semaphore. If a task is waiting, it is
// re-queued for resumption; otherwise the value is banked.
func (s *sema) release() {
	if s.w.Len() == 0 {
		s.v++
		return
	}

	task := s.w.PopFront()
	task.sched.addReady(task, Result{})
}
