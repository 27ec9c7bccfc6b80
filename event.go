package selio

// Direction tells which readiness a descriptor must reach before an
// Event's deferred operation can run without blocking.
type Direction uint8

const (
	// DirRead means the descriptor must become readable.
	DirRead Direction = iota
	// DirWrite means the descriptor must become writable.
	DirWrite
)

// eventKind is the closed set of deferred operations. The scheduler
// switches over it exhaustively at its two dispatch points.
type eventKind uint8

const (
	eventAccept eventKind = iota
	eventReceive
	eventSend
)

// Event describes a pending, possibly-blocking operation on a
// socket. It carries everything needed to execute the operation
// later: the owning socket, and either the byte count to receive or
// the buffer to send. An Event is created by the Socket facade,
// yielded by exactly one task, and consumed exactly once by the
// scheduler once its descriptor is confirmed ready.
type Event struct {
	kind   eventKind
	sock   *Socket
	nbytes int    // receive only
	buf    []byte // send only
}

// Descriptor returns the descriptor of the socket the event waits
// on.
func (e *Event) Descriptor() int { return e.sock.Descriptor() }

// Direction returns the readiness direction of the event, fixed at
// construction: accept and receive wait for readability, send for
// writability.
func (e *Event) Direction() Direction {
	switch e.kind {
	case eventAccept, eventReceive:
		return DirRead
	case eventSend:
		return DirWrite
	default:
		panic("selio: unknown event kind")
	}
}
