//go:build !linux

package selio

import "errors"

// Non-Linux builds have no readiness primitive wired up; supply a
// Poller with WithPoller instead.
func defaultPoller() Poller { return stubPoller{} }

type stubPoller struct{}

func (stubPoller) Wait([]int, []int) ([]int, []int, error) {
	return nil, nil, errors.New("selio: no readiness poller on this platform")
}
