//go:build !linux

package actuator

import "github.com/safing/peerguard/internal/netutils"

// IPTables is unavailable outside Linux; New returns an actuator whose
// Ban/Unban are no-ops so the daemon still runs (observe-only mode).
type IPTables struct{}

// New always succeeds on non-Linux platforms, returning a no-op actuator.
func New() (*IPTables, error) {
	return &IPTables{}, nil
}

// Ban is a no-op outside Linux.
func (*IPTables) Ban(netutils.Address) {}

// Unban is a no-op outside Linux.
func (*IPTables) Unban(netutils.Address) {}
