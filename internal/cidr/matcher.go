// Package cidr implements the read-only IPv4 prefix-matching set used for
// the blacklist and exceptions tables. The engine is on the hot path for
// every packet but only ever consults a CIDR matcher once per address on
// first sighting, so — per spec §4.3 — a sorted slice with a linear scan is
// the whole implementation; no radix/trie structure is warranted.
package cidr

import (
	"fmt"
	"net"
	"sort"

	"github.com/safing/peerguard/internal/netutils"
)

// Matcher is a read-only set of IPv4 CIDR ranges.
type Matcher struct {
	entries []entry
}

type entry struct {
	network net.IP
	mask    net.IPMask
	bits    int
}

// New builds a Matcher from prefix/mask-bits pairs, e.g.
// New(Prefix{Network: "10.0.0.0", Bits: 8}).
func New(prefixes ...Prefix) (*Matcher, error) {
	m := &Matcher{entries: make([]entry, 0, len(prefixes))}
	for _, p := range prefixes {
		if err := m.add(p.Network, p.Bits); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Prefix is a single (network, mask-bits) CIDR entry.
type Prefix struct {
	Network string `yaml:"network"`
	Bits    int    `yaml:"bits"`
}

func (m *Matcher) add(network string, bits int) error {
	ip := net.ParseIP(network)
	if ip == nil {
		return fmt.Errorf("cidr: invalid network %q", network)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return fmt.Errorf("cidr: not an IPv4 network %q", network)
	}
	if bits < 0 || bits > 32 {
		return fmt.Errorf("cidr: invalid mask length /%d for %q", bits, network)
	}
	m.entries = append(m.entries, entry{
		network: ip4,
		mask:    net.CIDRMask(bits, 32),
		bits:    bits,
	})
	// Sort longest-prefix-first; matching order doesn't change the
	// Contains result (any match wins) but keeps the common case of
	// precise /32 bans cheap to find first.
	sort.Slice(m.entries, func(i, j int) bool {
		return m.entries[i].bits > m.entries[j].bits
	})
	return nil
}

// Contains reports whether addr falls within any configured range.
func (m *Matcher) Contains(addr netutils.Address) bool {
	if m == nil {
		return false
	}
	ip := addr.IP().To4()
	for _, e := range m.entries {
		if ipMatchesNet(ip, e.network, e.mask) {
			return true
		}
	}
	return false
}

func ipMatchesNet(ip, network net.IP, mask net.IPMask) bool {
	for i := 0; i < len(ip); i++ {
		if ip[i]&mask[i] != network[i]&mask[i] {
			return false
		}
	}
	return true
}
