//go:build linux

package selio

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func defaultPoller() Poller { return selectPoller{} }

// selectPoller multiplexes readiness with select(2). select is the
// lowest common denominator of the readiness primitives and covers
// the descriptor counts this scheduler targets; an epoll-backed
// Poller can be substituted without touching the scheduler.
type selectPoller struct{}

func (selectPoller) Wait(read, write []int) ([]int, []int, error) {
	for {
		var rset, wset unix.FdSet
		nfds := 0
		for _, fd := range read {
			rset.Set(fd)
			if fd >= nfds {
				nfds = fd + 1
			}
		}
		for _, fd := range write {
			wset.Set(fd)
			if fd >= nfds {
				nfds = fd + 1
			}
		}

		// select mutates the sets in place, so they are rebuilt on
		// every retry.
		if _, err := unix.Select(nfds, &rset, &wset, nil, nil); err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, nil, fmt.Errorf("select: %w", err)
		}

		var readable, writable []int
		for _, fd := range read {
			if rset.IsSet(fd) {
				readable = append(readable, fd)
			}
		}
		for _, fd := range write {
			if wset.IsSet(fd) {
				writable = append(writable, fd)
			}
		}
		return readable, writable, nil
	}
}
