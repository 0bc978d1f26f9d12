//go:build linux

// Package actuator is the firewall.Actuator implementation: it installs
// and removes per-address DROP rules in a dedicated iptables chain,
// modeled on the chain/rule bootstrap in safing/portmaster's
// service/firewall/interception/nfqueue_linux.go, but scoped to a single
// ban chain rather than the teacher's full NFQUEUE/mark pipeline.
package actuator

import (
	"fmt"

	"github.com/coreos/go-iptables/iptables"
	multierror "github.com/hashicorp/go-multierror"

	"github.com/safing/peerguard/internal/netutils"
)

const (
	banChain = "PEERGUARD-BAN"
	table    = "filter"
)

// IPTables bans addresses by inserting a DROP rule for them into a
// dedicated chain hooked from INPUT.
type IPTables struct {
	ipt *iptables.IPTables
}

// New creates the ban chain (if absent) and hooks it from INPUT.
func New() (*IPTables, error) {
	ipt, err := iptables.New()
	if err != nil {
		return nil, fmt.Errorf("actuator: failed to init iptables: %w", err)
	}
	a := &IPTables{ipt: ipt}
	if err := a.bootstrap(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *IPTables) bootstrap() error {
	var result *multierror.Error

	exists, err := a.ipt.ChainExists(table, banChain)
	if err != nil {
		result = multierror.Append(result, err)
	} else if !exists {
		if err := a.ipt.NewChain(table, banChain); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := a.ipt.AppendUnique(table, "INPUT", "-j", banChain); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// Ban installs a DROP rule for addr. Idempotent: AppendUnique is a no-op
// if the rule already exists.
func (a *IPTables) Ban(addr netutils.Address) {
	_ = a.ipt.AppendUnique(table, banChain, "-s", addr.IP().String(), "-j", "DROP")
}

// Unban removes addr's DROP rule, if present. Per spec §5/§9, the engine
// may call Unban for an address that was never banned (purge quirk) or
// already unblocked; DeleteIfExists tolerates both.
func (a *IPTables) Unban(addr netutils.Address) {
	_ = a.ipt.DeleteIfExists(table, banChain, "-s", addr.IP().String(), "-j", "DROP")
}
