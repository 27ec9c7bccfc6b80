package selio

// singleFlightCall represents an in-flight function call that may
// be shared among multiple tasks. It tracks the result of the call
// and the number of duplicated requests.
type singleFlightCall struct {
	wg   WaitGroup // Wait group for tasks waiting on this call
	val  any       // The result value of the call
	err  error     // Any error from the call
	dups int       // Number of duplicate calls
}

// SingleFlight deduplicates concurrent calls with the same key:
// only one execution happens, and every caller parked on the key
// shares its result. fn may itself await events.
type SingleFlight struct {
	m map[any]*singleFlightCall // In-flight calls by key
}

// Do executes fn for the key on behalf of task, deduplicating
// concurrent calls. It returns the result, any error, and whether
// the result was shared with other callers.
func (g *SingleFlight) Do(task *Task, key any, fn func() (any, error)) (v any, err error, shared bool) {
	if g.m == nil {
		g.m = make(map[any]*singleFlightCall)
	}

	if c, ok := g.m[key]; ok {
		c.dups++
		c.wg.Wait(task)
		return c.val, c.err, true
	}

	c := new(singleFlightCall)
	c.wg.Add(1)
	g.m[key] = c

	g.doCall(c, key, fn)
	return c.val, c.err, c.dups > 0
}

// doCall executes fn and stores the result in the call record,
// cleaning up the map entry when the call is complete.
func (g *SingleFlight) doCall(c *singleFlightCall, key any, fn func() (any, error)) {
	defer func() {
		c.wg.Done()
		if g.m[key] == c {
			delete(g.m, key)
		}
	}()

	c.val, c.err = fn()
}
