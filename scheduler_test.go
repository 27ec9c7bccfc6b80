package selio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory Conn. A listener variant holds a backlog
// of pending connections; a stream variant holds what the peer sent
// in `in` and collects what we sent in `out`.
type fakeConn struct {
	fd         int
	in         bytes.Buffer
	out        bytes.Buffer
	pending    []*fakeConn
	peer       string
	closed     bool
	writeLimit int
	writes     int
	readErr    error
}

func (c *fakeConn) Descriptor() int { return c.fd }

func (c *fakeConn) Accept() (Conn, string, error) {
	if len(c.pending) == 0 {
		return nil, "", errors.New("fake accept: empty backlog")
	}
	nc := c.pending[0]
	c.pending = c.pending[1:]
	return nc, nc.peer, nil
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if c.readErr != nil {
		return 0, c.readErr
	}
	if c.in.Len() == 0 {
		if c.closed {
			return 0, nil
		}
		return 0, errors.New("fake read: descriptor not readable")
	}
	return c.in.Read(p)
}

func (c *fakeConn) Write(p []byte) (int, error) {
	n := len(p)
	if c.writeLimit > 0 && n > c.writeLimit {
		n = c.writeLimit
	}
	c.out.Write(p[:n])
	c.writes++
	return n, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) readable() bool {
	return len(c.pending) > 0 || c.in.Len() > 0 || c.closed || c.readErr != nil
}

// fakePoller reports a descriptor readable when its fakeConn has
// something to deliver, and any descriptor writable.
type fakePoller struct {
	conns  map[int]*fakeConn
	nextfd int
}

func (p *fakePoller) conn(peer string) *fakeConn {
	if p.conns == nil {
		p.conns = make(map[int]*fakeConn)
	}
	p.nextfd++
	c := &fakeConn{fd: p.nextfd, peer: peer}
	p.conns[c.fd] = c
	return c
}

func (p *fakePoller) Wait(read, write []int) ([]int, []int, error) {
	var readable, writable []int
	for _, fd := range read {
		if c, ok := p.conns[fd]; ok && c.readable() {
			readable = append(readable, fd)
		}
	}
	writable = append(writable, write...)
	if len(readable)+len(writable) == 0 {
		return nil, nil, errors.New("fake poll: no descriptor actionable")
	}
	return readable, writable, nil
}

// echoHandler copies received bytes straight back until the peer
// closes.
func echoHandler(conn *Socket) TaskFunc {
	return func(_ context.Context, t *Task) error {
		for {
			data, err := t.Receive(conn, 1024)
			if err != nil {
				return err
			}
			if len(data) == 0 {
				return nil
			}
			if err := t.SendAll(conn, data); err != nil {
				return err
			}
		}
	}
}

func TestEchoRoundTrip(t *testing.T) {
	r := require.New(t)

	p := new(fakePoller)
	c := p.conn("client")
	c.in.WriteString("ping")
	c.closed = true // peer sends then closes

	s := New(WithPoller(p))
	s.Submit(context.Background(), echoHandler(NewSocket(c)))

	r.NoError(s.Run(context.Background()))
	r.Equal("ping", c.out.String())
	r.Zero(s.Running())
	r.Empty(s.readWait)
	r.Empty(s.writeWait)
}

func TestAcceptSpawnsHandler(t *testing.T) {
	r := require.New(t)

	p := new(fakePoller)
	listener := p.conn("")
	client := p.conn("10.0.0.9:4242")
	listener.pending = []*fakeConn{client}

	handlers := 0
	s := New(WithPoller(p))
	s.Submit(context.Background(), func(_ context.Context, task *Task) error {
		sock := NewSocket(listener)
		for {
			conn, peer, err := task.Accept(sock)
			if err != nil {
				return err
			}
			r.Equal("10.0.0.9:4242", peer)
			task.Spawn(func(_ context.Context, _ *Task) error {
				handlers++
				return conn.Close()
			})
		}
	})

	// One cycle: the server blocks on accept, the poll delivers the
	// pending connection, the next drain spawns the handler and the
	// server goes back to waiting.
	s.runReady()
	r.Contains(s.readWait, listener.fd)
	r.NoError(s.poll())
	s.runReady()

	r.Equal(1, handlers)
	r.Contains(s.readWait, listener.fd)
	r.Equal(1, s.Running()) // server still running, handler done

	s.cancelAll()
}

func TestClientIsolation(t *testing.T) {
	r := require.New(t)

	p := new(fakePoller)
	a := p.conn("a")
	a.in.WriteString("payload-a")
	a.closed = true
	b := p.conn("b")
	b.in.WriteString("payload-b")
	b.closed = true

	s := New(WithPoller(p))
	s.Submit(context.Background(), echoHandler(NewSocket(a)))
	s.Submit(context.Background(), echoHandler(NewSocket(b)))

	r.NoError(s.Run(context.Background()))
	r.Equal("payload-a", a.out.String())
	r.Equal("payload-b", b.out.String())
}

func TestPartialSend(t *testing.T) {
	r := require.New(t)

	p := new(fakePoller)
	c := p.conn("client")
	c.in.WriteString("pingpong")
	c.closed = true
	c.writeLimit = 3

	s := New(WithPoller(p))
	s.Submit(context.Background(), echoHandler(NewSocket(c)))

	r.NoError(s.Run(context.Background()))
	r.Equal("pingpong", c.out.String())
	// The handler, not the scheduler, re-issued the remainder.
	r.Equal(3, c.writes)
}

func TestSubmitOrderFIFO(t *testing.T) {
	r := require.New(t)

	var order []string
	s := New(WithPoller(new(fakePoller)))
	for _, name := range []string{"a", "b", "c"} {
		s.Submit(context.Background(), func(_ context.Context, _ *Task) error {
			order = append(order, name)
			return nil
		})
	}

	r.NoError(s.Run(context.Background()))
	r.Equal([]string{"a", "b", "c"}, order)
}

func TestSpawnRunsAfterCurrentPass(t *testing.T) {
	r := require.New(t)

	var order []string
	s := New(WithPoller(new(fakePoller)))
	s.Submit(context.Background(), func(_ context.Context, task *Task) error {
		order = append(order, "a")
		task.Spawn(func(_ context.Context, _ *Task) error {
			order = append(order, "spawned")
			return nil
		})
		return nil
	})
	s.Submit(context.Background(), func(_ context.Context, _ *Task) error {
		order = append(order, "b")
		return nil
	})

	r.NoError(s.Run(context.Background()))
	r.Equal([]string{"a", "b", "spawned"}, order)
}

// disjointPoller fails the test if a descriptor ever shows up in
// both interest sets at once.
type disjointPoller struct {
	inner Poller
	r     *require.Assertions
}

func (p disjointPoller) Wait(read, write []int) ([]int, []int, error) {
	seen := make(map[int]bool, len(read))
	for _, fd := range read {
		seen[fd] = true
	}
	for _, fd := range write {
		p.r.False(seen[fd], "descriptor %d awaited for both read and write", fd)
	}
	return p.inner.Wait(read, write)
}

func TestWaitTablesDisjoint(t *testing.T) {
	r := require.New(t)

	p := new(fakePoller)
	for i := 0; i < 4; i++ {
		c := p.conn(fmt.Sprintf("client-%d", i))
		c.in.WriteString("data")
		c.closed = true
		c.writeLimit = 1
	}

	s := New(WithPoller(disjointPoller{inner: p, r: r}))
	for _, c := range p.conns {
		s.Submit(context.Background(), echoHandler(NewSocket(c)))
	}

	r.NoError(s.Run(context.Background()))
	r.Zero(s.Running())
}

func TestDuplicateDescriptorPanics(t *testing.T) {
	r := require.New(t)

	p := new(fakePoller)
	c := p.conn("client")
	sock := NewSocket(c)

	s := New(WithPoller(p))
	receive := func(_ context.Context, task *Task) error {
		_, err := task.Receive(sock, 1)
		return err
	}
	s.Submit(context.Background(), receive)
	s.Submit(context.Background(), receive)

	r.PanicsWithValue(
		fmt.Sprintf("selio: descriptor %d already awaited for read", c.fd),
		func() { _ = s.Run(context.Background()) },
	)
}

func TestResourceFaultIsolatesTask(t *testing.T) {
	r := require.New(t)

	p := new(fakePoller)
	bad := p.conn("bad")
	bad.readErr = errors.New("connection reset")
	good := p.conn("good")
	good.in.WriteString("still here")
	good.closed = true

	var badErr error
	s := New(WithPoller(p))
	s.Submit(context.Background(), func(_ context.Context, task *Task) error {
		_, badErr = task.Receive(NewSocket(bad), 16)
		return badErr
	})
	s.Submit(context.Background(), echoHandler(NewSocket(good)))

	r.NoError(s.Run(context.Background()))
	r.ErrorContains(badErr, "connection reset")
	r.Equal("still here", good.out.String())
	r.Zero(s.Running())
}

func TestTaskPanicIsolated(t *testing.T) {
	r := require.New(t)

	p := new(fakePoller)
	good := p.conn("good")
	good.in.WriteString("survivor")
	good.closed = true

	s := New(WithPoller(p))
	s.Submit(context.Background(), func(_ context.Context, _ *Task) error {
		panic("boom")
	})
	s.Submit(context.Background(), echoHandler(NewSocket(good)))

	r.NoError(s.Run(context.Background()))
	r.Equal("survivor", good.out.String())
	r.Zero(s.Running())
}

func TestPeerCloseCleansUp(t *testing.T) {
	r := require.New(t)

	p := new(fakePoller)
	c := p.conn("client")
	c.closed = true // zero bytes then close

	s := New(WithPoller(p))
	s.Submit(context.Background(), echoHandler(NewSocket(c)))
	r.Equal(1, s.Running())

	r.NoError(s.Run(context.Background()))
	r.Zero(s.Running())
	r.NotContains(s.readWait, c.fd)
	r.NotContains(s.writeWait, c.fd)
}

func TestFailedTaskReported(t *testing.T) {
	r := require.New(t)

	s := New(WithPoller(new(fakePoller)))
	s.Submit(context.Background(), func(_ context.Context, _ *Task) error {
		return errors.New("handler gave up")
	})

	r.NoError(s.Run(context.Background()))
	r.Zero(s.Running())
}
