// Package netutils classifies IPv4 addresses the way the firewall engine
// needs: a fast, allocation-free check for addresses that must never be
// treated as a remote peer. Adapted from the scope classifier in
// safing/portmaster's service/network/netutils package, narrowed to the
// exact ranges this protocol's original implementation special-cased.
package netutils

import (
	"fmt"
	"net"
)

// Address is a 32-bit IPv4 address in host byte order.
type Address uint32

// AddressFromIP converts a net.IP (v4 or v4-in-v6) to a host-order Address.
// Returns false if ip is not an IPv4 address.
func AddressFromIP(ip net.IP) (Address, bool) {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0, false
	}
	return Address(uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])), true
}

// IP returns the net.IP representation of the address.
func (a Address) IP() net.IP {
	return net.IPv4(byte(a>>24), byte(a>>16), byte(a>>8), byte(a))
}

// String returns the dotted-quad representation, e.g. "1.2.3.4".
func (a Address) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(a>>24), byte(a>>16), byte(a>>8), byte(a))
}

// IsSpecial reports whether addr is in a reserved, private, or multicast
// range that an end-host must never treat as a remote peer. Ranges and
// their quirks are preserved exactly as observed in the original firewall:
// the 172.16/12 check is a deliberate super-set reaching up to 172.32
// (flagged in DESIGN.md / spec §9, not RFC 1918 correct) and is kept as-is.
func IsSpecial(addr Address) bool {
	b1 := byte(addr >> 24)
	b2 := byte(addr >> 16)
	b3 := byte(addr >> 8)

	switch b1 {
	case 0, 10, 127:
		return true
	case 100:
		if b2 >= 64 && b2 <= 127 {
			return true
		}
	case 169:
		if b2 == 254 {
			return true
		}
	case 172:
		// Deliberate super-set of RFC 1918 172.16.0.0/12 (b2 in [16,31]).
		// Preserved verbatim; see spec §9.
		if b2 >= 16 && b2 <= 32 {
			return true
		}
	case 192:
		if (b2 == 0 && (b3 == 0 || b3 == 2)) || (b2 == 88 && b3 == 99) || b2 == 168 {
			return true
		}
	case 198:
		if (b2 >= 18 && b2 <= 19) || (b2 == 51 && b3 == 100) {
			return true
		}
	case 203:
		if b2 == 0 && b3 == 113 {
			return true
		}
	}

	if b1 >= 224 {
		return true
	}
	return false
}
