package capture

import (
	"fmt"
	"net"

	"github.com/safing/peerguard/internal/netutils"
)

// LocalIPv4Addresses enumerates the host's own non-loopback IPv4
// addresses, ported from the original's ListIpAddresses (HaxWall.cpp),
// which skips loopback adapters and collects unicast IPv4 addresses to
// whitelist — so the firewall never classifies the host's own interfaces
// as a remote peer. Uses stdlib net.Interfaces (see DESIGN.md for why no
// third-party library replaces it).
func LocalIPv4Addresses() ([]netutils.Address, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("capture: failed to list interfaces: %w", err)
	}

	var addrs []netutils.Address
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		ifaceAddrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range ifaceAddrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			addr, ok := netutils.AddressFromIP(ipNet.IP)
			if !ok {
				continue
			}
			addrs = append(addrs, addr)
		}
	}
	return addrs, nil
}
