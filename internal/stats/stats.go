package stats

// MaxPorts is the number of distinct source ports allowed from one address
// within Timeout before it is considered a port scanner (spec MAX_PORTS).
const MaxPorts = 3

// Timeout is the inactivity threshold, in seconds, after which an
// address's stats are considered stale (spec TIMEOUT).
const Timeout = 60

// AddressStatistics tracks one source address's recent packet arrivals
// and the distinct source ports it has used, per spec §3/§4.4.
type AddressStatistics struct {
	window     window
	ports      map[uint16]int64
	lastActive int64
}

// New creates stats seeded with a single arrival on port at now.
func New(port uint16, now int64) *AddressStatistics {
	s := &AddressStatistics{
		window:     newWindow(now),
		ports:      make(map[uint16]int64, MaxPorts+1),
		lastActive: now,
	}
	s.ports[port] = now
	return s
}

// Reset reinitializes the stats to the single-port, single-packet state,
// as if this were the address's first sighting (spec: "Reappearance").
func (s *AddressStatistics) Reset(port uint16, now int64) {
	s.window = newWindow(now)
	s.ports = make(map[uint16]int64, MaxPorts+1)
	s.ports[port] = now
	s.lastActive = now
}

// TimedOut reports whether more than timeout seconds have elapsed since
// the last recorded activity. timeout is supplied by the caller (the
// firewall engine) so it can be overridden from config.Tunables without
// this package depending on the config package.
func (s *AddressStatistics) TimedOut(now, timeout int64) bool {
	return now-s.lastActive > timeout
}

// RemoveOldPorts drops port entries whose last-seen time is more than
// timeout seconds old.
func (s *AddressStatistics) RemoveOldPorts(now, timeout int64) {
	for port, seen := range s.ports {
		if now-seen > timeout {
			delete(s.ports, port)
		}
	}
}

// TouchPort records port as seen at now, adding it to the recent-ports map
// if new. Callers must call RemoveOldPorts first, per spec §4.2 step 4(a).
func (s *AddressStatistics) TouchPort(port uint16, now int64) {
	s.ports[port] = now
	s.lastActive = now
}

// PortCount returns the number of distinct ports currently tracked.
func (s *AddressStatistics) PortCount() int {
	return len(s.ports)
}

// CountPacket records one packet arrival in the sliding window.
func (s *AddressStatistics) CountPacket(now int64) {
	s.window.count(now)
	s.lastActive = now
}

// HitLimit reports whether the packet rate has exceeded the flood
// threshold (spec MAX_PACKETS within MAX_PACKET_FRAME).
func (s *AddressStatistics) HitLimit() bool {
	return s.window.hitLimit()
}
