//go:build linux

package selio

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

const listenBacklog = 128

// netConn is a Conn over a raw non-blocking socket descriptor.
type netConn struct {
	fd int
}

// Listen opens a non-blocking listening TCP socket on addr
// ("host:port") and wraps it in a Socket. SO_REUSEADDR is set, as
// for any server socket.
func Listen(addr string) (*Socket, error) {
	tcp, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}

	sa := &unix.SockaddrInet4{Port: tcp.Port}
	if ip := tcp.IP.To4(); ip != nil {
		copy(sa.Addr[:], ip)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	return NewSocket(&netConn{fd: fd}), nil
}

func (c *netConn) Descriptor() int { return c.fd }

func (c *netConn) Accept() (Conn, string, error) {
	nfd, sa, err := unix.Accept4(c.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return nil, "", fmt.Errorf("accept: %w", err)
	}
	return &netConn{fd: nfd}, sockaddrString(sa), nil
}

func (c *netConn) Read(p []byte) (int, error)  { return unix.Read(c.fd, p) }
func (c *netConn) Write(p []byte) (int, error) { return unix.Write(c.fd, p) }
func (c *netConn) Close() error                { return unix.Close(c.fd) }

func (c *netConn) LocalAddr() string {
	sa, err := unix.Getsockname(c.fd)
	if err != nil {
		return ""
	}
	return sockaddrString(sa)
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return fmt.Sprintf("%d.%d.%d.%d:%d", a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3], a.Port)
	case *unix.SockaddrInet6:
		return fmt.Sprintf("[%s]:%d", net.IP(a.Addr[:]).String(), a.Port)
	default:
		return ""
	}
}
