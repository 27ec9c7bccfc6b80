// Package selio implements single-threaded cooperative scheduling
// of socket I/O. Many independent tasks make progress on one
// goroutine by suspending whenever a socket operation could block;
// a central scheduler resumes each task exactly when the operation
// can complete immediately.
//
// Key components:
//
//   - Event: a deferred, readiness-gated socket operation (accept,
//     receive or send) produced by the Socket facade instead of
//     being executed on the spot.
//
//   - Socket: wraps a raw Conn; each of its operations constructs
//     an Event and never blocks. Errors surface only when the
//     deferred operation is finally executed.
//
//   - Task: the coroutine-like unit of work. A task runs
//     synchronously until it awaits an Event, suspends, and is
//     later resumed with that event's Result.
//
//   - Scheduler: owns the FIFO ready queue and the read/write wait
//     tables keyed by descriptor, and alternates between draining
//     the ready queue and blocking on a readiness poll.
//
//   - Poller: the readiness-multiplexing seam. Production builds
//     use select(2); tests substitute a deterministic fake.
//
//   - Synchronization primitives: Mutex, WaitGroup, ErrGroup, and
//     SingleFlight for coordination between tasks.
//
// The scheduler is deliberately unbounded: no poll timeout, no cap
// on spawned tasks, no deadline tracking. Those are extension
// points, not defaults.
package selio
