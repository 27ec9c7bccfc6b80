package selio

import "github.com/gammazero/deque"

// Mutex provides mutual exclusion between tasks. Only one task
// holds the lock at a time; tasks that attempt to acquire a held
// lock are parked until it is released. Unlock hands ownership
// directly to the longest-waiting task, so the lock cannot be
// stolen between the release and the waiter's resumption.
type Mutex struct {
	noCopy noCopy             // Prevents copying of the mutex
	r      *Task              // Current holder
	w      deque.Deque[*Task] // Waiting tasks queue
}

// Lock acquires the mutex for the given task, parking it if the
// mutex is held.
func (m *Mutex) Lock(task *Task) {
	if m.r == nil {
		m.r = task
		return
	}

	m.w.PushBack(task)
	task.park()
	// Ownership was transferred by Unlock before the resume.
}

// Unlock releases the mutex. If tasks are waiting, ownership passes
// to the first of them and it is queued for resumption.
func (m *Mutex) Unlock() {
	if m.w.Len() == 0 {
		m.r = nil
		return
	}

	next := m.w.PopFront()
	m.r = next
	next.sched.addReady(next, Result{})
}

// WaitCount returns the number of tasks waiting to acquire the
// mutex.
func (m *Mutex) WaitCount() int {
	return m.w.Len()
}
