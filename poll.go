package selio

// Poller is the readiness-multiplexing seam the scheduler blocks
// on. Wait takes the descriptors awaited for readability and
// writability and blocks until at least one of them is actionable,
// returning the actionable subsets. The order of returned
// descriptors is unspecified and callers must not rely on it.
type Poller interface {
	Wait(read, write []int) (readable, writable []int, err error)
}
