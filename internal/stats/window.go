// Package stats implements the per-address sliding-window packet counter
// and recent-ports map the firewall engine uses to detect floods and
// port-scanning. Ported from the ring buffer and port map in the original
// AddressStatistics (HaxWall/ban.h), keeping its exact ring-cursor and
// hit-limit arithmetic.
package stats

// MaxPackets is the ring buffer capacity: packets counted inside the rate
// window (spec MAX_PACKETS).
const MaxPackets = 80

// MaxPacketFrame is the window length in seconds: >MaxPackets packets
// within this span is a flood (spec MAX_PACKET_FRAME).
const MaxPacketFrame = 1

// window is a fixed-capacity ring buffer of arrival timestamps.
type window struct {
	times       [MaxPackets]int64
	packetCount uint64
	cursor      int
}

func newWindow(now int64) window {
	w := window{packetCount: 1}
	w.times[0] = now
	return w
}

// count records one more packet arrival at now, advancing the cursor
// modulo MaxPackets exactly as the original's CountPacket does.
func (w *window) count(now int64) {
	w.packetCount++
	w.cursor++
	if w.cursor >= MaxPackets {
		w.cursor = 0
	}
	w.times[w.cursor] = now
}

// hitLimit reports whether the ring has flooded: more than MaxPackets
// packets have been seen overall AND the span between the oldest slot
// (cursor+1) and the newest (cursor) is under MaxPacketFrame seconds.
// The packetCount > MaxPackets guard prevents false positives before the
// ring has filled once, when early slots are still uninitialized zero
// values (see spec §4.2 ring semantics).
func (w *window) hitLimit() bool {
	oldest := w.cursor + 1
	if oldest >= MaxPackets {
		oldest = 0
	}
	diff := w.times[w.cursor] - w.times[oldest]
	return w.packetCount > MaxPackets && diff < MaxPacketFrame
}
