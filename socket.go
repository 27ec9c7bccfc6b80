package selio

// Conn is the raw socket capability a Socket defers to. Its
// operations are invoked by the scheduler only after readiness has
// been confirmed, so implementations may assume they will not
// block. Read must report a cleanly closed peer as (0, nil).
type Conn interface {
	// Descriptor returns the identity the readiness poll is keyed
	// by.
	Descriptor() int
	// Accept takes one pending connection off a listening socket
	// and returns it with the peer address.
	Accept() (Conn, string, error)
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Socket wraps a Conn so that each potentially-blocking operation
// returns an Event describing the operation instead of performing
// it. No error can occur at construction time; errors surface when
// the scheduler executes the deferred operation.
type Socket struct {
	conn Conn
}

// NewSocket wraps a raw Conn in the deferring facade.
func NewSocket(c Conn) *Socket { return &Socket{conn: c} }

// Descriptor returns the underlying descriptor.
func (s *Socket) Descriptor() int { return s.conn.Descriptor() }

// Accept returns an Event that, once s is readable, accepts one
// pending connection.
func (s *Socket) Accept() *Event {
	return &Event{kind: eventAccept, sock: s}
}

// Receive returns an Event that, once s is readable, reads up to n
// bytes. A zero-length result signals that the peer closed the
// connection.
func (s *Socket) Receive(n int) *Event {
	return &Event{kind: eventReceive, sock: s, nbytes: n}
}

// Send returns an Event that, once s is writable, writes p. The
// write may be short; re-issuing Send for the remainder is the
// awaiting task's responsibility, never the scheduler's.
func (s *Socket) Send(p []byte) *Event {
	return &Event{kind: eventSend, sock: s, buf: p}
}

// Close closes the underlying Conn. Closing a socket that a task is
// still awaiting is a caller error.
func (s *Socket) Close() error { return s.conn.Close() }

// LocalAddr reports the bound address when the underlying Conn
// exposes one, which is how a port-0 listener learns its real port.
// Returns the empty string otherwise.
func (s *Socket) LocalAddr() string {
	if a, ok := s.conn.(interface{ LocalAddr() string }); ok {
		return a.LocalAddr()
	}
	return ""
}
