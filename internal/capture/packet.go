// Package capture is the packet-ingress collaborator: it decodes raw IPv4
// frames, applies the ingress filter from spec §6, and feeds accepted
// (address, port) observations into the firewall engine. Header decoding
// uses github.com/google/gopacket's layer parsers; protocol constants are
// adapted from safing/portmaster's service/network/packet package, and the
// nfqueue wiring from service/firewall/interception/nfq.
package capture

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// udpProtocolNumber is IANA protocol number 17 (0x11), the only protocol
// this filter accepts (spec §6: "IPv4 protocol field equals 0x11").
const udpProtocolNumber = 0x11

// minHeaderLen is the minimum combined IPv4+UDP header size accepted
// (spec §6: "packets shorter than the minimum IPv4+UDP header (28 bytes)").
const minHeaderLen = 28

// excludedPort is the RDP port excluded on the destination side (spec §6).
const excludedPort = 3389

// minAllowedPort is the lowest port considered; anything below is
// discarded on both source and destination (spec §6).
const minAllowedPort = 1024

// Observation is one accepted (source address, source port) pair ready
// for the firewall engine.
type Observation struct {
	SrcAddr uint32 // host-order IPv4 address
	SrcPort uint16
}

// ErrRejected is returned by DecodeIPv4UDP when a frame fails the ingress
// filter; callers should drop silently (spec §7, "Ingress malformed").
var ErrRejected = fmt.Errorf("capture: packet rejected by ingress filter")

// DecodeIPv4UDP parses a raw IPv4 frame (as delivered by nfqueue) and
// applies the ingress contract from spec §6:
//   - reject frames shorter than minHeaderLen or not protocol 0x11
//   - reject source/destination ports below 1024, or destination port 3389
//
// On success it returns the source address (host order) and source port.
func DecodeIPv4UDP(frame []byte) (Observation, error) {
	// Cheap pre-checks before spending a full layer decode, per the
	// original's header-byte checks (HaxWall.cpp: "count < 28 ||
	// data[9] != 0x11").
	if len(frame) < minHeaderLen || frame[9] != udpProtocolNumber {
		return Observation{}, ErrRejected
	}

	pkt := gopacket.NewPacket(frame, layers.LayerTypeIPv4, gopacket.DecodeOptions{
		Lazy:   true,
		NoCopy: true,
	})

	ipLayer := pkt.Layer(layers.LayerTypeIPv4)
	udpLayer := pkt.Layer(layers.LayerTypeUDP)
	if ipLayer == nil || udpLayer == nil {
		return Observation{}, ErrRejected
	}
	ip4, _ := ipLayer.(*layers.IPv4)
	udp, _ := udpLayer.(*layers.UDP)
	if ip4 == nil || udp == nil || ip4.Protocol != layers.IPProtocolUDP {
		return Observation{}, ErrRejected
	}

	srcPort := uint16(udp.SrcPort)
	dstPort := uint16(udp.DstPort)
	if srcPort < minAllowedPort || dstPort < minAllowedPort || dstPort == excludedPort {
		return Observation{}, ErrRejected
	}

	src := ip4.SrcIP.To4()
	if src == nil {
		return Observation{}, ErrRejected
	}
	srcAddr := uint32(src[0])<<24 | uint32(src[1])<<16 | uint32(src[2])<<8 | uint32(src[3])

	return Observation{SrcAddr: srcAddr, SrcPort: srcPort}, nil
}
