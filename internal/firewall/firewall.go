// Package firewall implements the address-classification and ban-lifecycle
// engine: the core decision logic ported from the original AttackFirewall
// (HaxWall/ban.h), preserving its precedence order, quirks, and ring-buffer
// boundary behavior exactly, per spec §4.2.
package firewall

import (
	"github.com/safing/peerguard/internal/bans"
	"github.com/safing/peerguard/internal/cidr"
	"github.com/safing/peerguard/internal/clock"
	"github.com/safing/peerguard/internal/config"
	"github.com/safing/peerguard/internal/netutils"
	"github.com/safing/peerguard/internal/stats"
)

// BanStatus is the outcome of ReceivePacket. Ban/Unban mark an edge
// transition just emitted; Banned/Unbanned mark steady state.
type BanStatus uint8

const (
	Unbanned BanStatus = iota
	Banned
	Ban
	Unban
)

func (s BanStatus) String() string {
	switch s {
	case Unbanned:
		return "Unbanned"
	case Banned:
		return "Banned"
	case Ban:
		return "Ban"
	case Unban:
		return "Unban"
	default:
		return "Unknown"
	}
}

// BanReason names why a Ban was issued. ReceivePacket does not return it:
// the reason reaches logging and metrics only through the audit log tag
// ("Multiport:", "Flood:", "Blacklist:"). The actuator contract itself
// stays reason-agnostic (spec §9).
type BanReason uint8

const (
	ReasonNone BanReason = iota
	ReasonMultiport
	ReasonFlood
	ReasonBlacklist
)

// Ban durations, in seconds (spec §3 tunables table).
const (
	BanDurationMultiport = 60
	BanDurationFlood     = 60
	BanDurationBlacklist = 3600
)

// PurgeInterval is the minimum gap between housekeeping passes.
const PurgeInterval = 30

// Actuator installs and removes OS-level deny rules. Calls must be
// synchronous, non-reentrant, and idempotent from the engine's standpoint:
// the engine may Unban an address that is already unblocked (spec §5, §9).
type Actuator interface {
	Ban(addr netutils.Address)
	Unban(addr netutils.Address)
}

// AuditLogger receives one call per audit line the engine emits (spec §6).
type AuditLogger interface {
	Log(tag string, addr netutils.Address)
}

type noopActuator struct{}

func (noopActuator) Ban(netutils.Address)   {}
func (noopActuator) Unban(netutils.Address) {}

type noopLogger struct{}

func (noopLogger) Log(string, netutils.Address) {}

// Firewall is the engine: process-wide, single-owner state per spec §3.
// All operations are synchronous and assume a single caller; the engine
// itself holds no internal locking (spec §5).
type Firewall struct {
	clock clock.Clock

	table     map[netutils.Address]*stats.AddressStatistics
	bans      *bans.Table
	whitelist map[netutils.Address]struct{}

	blacklist  *cidr.Matcher
	exceptions *cidr.Matcher

	lastPurge int64

	actuator Actuator
	logger   AuditLogger

	// Overridable tunables (spec §3); defaulted from config.DefaultTunables
	// so a Firewall constructed without WithTunables behaves exactly per
	// spec's defaults table.
	maxPorts             int
	timeout              int64
	purgeInterval        int64
	banDurationMultiport int64
	banDurationFlood     int64
	banDurationBlacklist int64
}

// Option configures a new Firewall.
type Option func(*Firewall)

// WithActuator sets the ban/unban callback target.
func WithActuator(a Actuator) Option {
	return func(fw *Firewall) { fw.actuator = a }
}

// WithAuditLogger sets the audit log sink.
func WithAuditLogger(l AuditLogger) Option {
	return func(fw *Firewall) { fw.logger = l }
}

// WithTunables overrides the engine's thresholds and ban durations from a
// loaded config.Tunables (spec §3/§6 expansion: tunables are loadable
// instead of compiled-in). MaxPackets/MaxPacketFrame are not included:
// they size the fixed-capacity ring buffer in internal/stats and are kept
// as compile-time constants (see DESIGN.md).
func WithTunables(t config.Tunables) Option {
	return func(fw *Firewall) {
		fw.maxPorts = t.MaxPorts
		fw.timeout = int64(t.Timeout)
		fw.purgeInterval = int64(t.PurgeInterval)
		fw.banDurationMultiport = int64(t.BanDurationMultiport)
		fw.banDurationFlood = int64(t.BanDurationFlood)
		fw.banDurationBlacklist = int64(t.BanDurationBlacklist)
	}
}

// New creates a Firewall. clk must not be nil. Defaults match spec §3's
// tunables table exactly; override with WithTunables.
func New(clk clock.Clock, opts ...Option) *Firewall {
	d := config.DefaultTunables()
	fw := &Firewall{
		clock:                clk,
		table:                make(map[netutils.Address]*stats.AddressStatistics, 1<<16),
		bans:                 bans.NewTable(),
		whitelist:            make(map[netutils.Address]struct{}, 1<<10),
		actuator:             noopActuator{},
		logger:               noopLogger{},
		lastPurge:            clk.Now(),
		maxPorts:             d.MaxPorts,
		timeout:              int64(d.Timeout),
		purgeInterval:        int64(d.PurgeInterval),
		banDurationMultiport: int64(d.BanDurationMultiport),
		banDurationFlood:     int64(d.BanDurationFlood),
		banDurationBlacklist: int64(d.BanDurationBlacklist),
	}
	for _, opt := range opts {
		opt(fw)
	}
	return fw
}

// SetBlacklist installs the blacklist and exceptions CIDR matchers. Either
// may be nil. Each call replaces both previously installed matchers. They
// are only ever consulted on an address's first sighting (spec §4.2 step
// 3, §9).
func (fw *Firewall) SetBlacklist(blacklist, exceptions *cidr.Matcher) {
	fw.blacklist = blacklist
	fw.exceptions = exceptions
}

// AddWhitelist adds addr to the whitelist. Additive and idempotent.
func (fw *Firewall) AddWhitelist(addr netutils.Address) {
	fw.whitelist[addr] = struct{}{}
}

// ReceivePacket is the core decision operation: consumes one
// (address, port) observation at the engine's current instant and returns
// the resulting BanStatus, per the precedence order in spec §4.2.
func (fw *Firewall) ReceivePacket(addr netutils.Address, port uint16) BanStatus {
	now := fw.clock.Now()

	// 1. Exempt: special addresses and the whitelist short-circuit
	// entirely — no logging, no mutation.
	if netutils.IsSpecial(addr) {
		return Unbanned
	}
	if _, whitelisted := fw.whitelist[addr]; whitelisted {
		return Unbanned
	}

	// 2. Existing ban.
	if ban, banned := fw.bans.Get(addr); banned {
		if ban.Expired(now) {
			fw.bans.Remove(addr)
			fw.actuator.Unban(addr)
			fw.logger.Log("Unban:", addr)
			return Unban
		}
		return Banned
	}

	entry, tracked := fw.table[addr]

	// 3. First sighting.
	if !tracked {
		if fw.exceptions.Contains(addr) {
			fw.whitelist[addr] = struct{}{}
			fw.logger.Log("Whitelist:", addr)
			return Unbanned
		}
		if fw.blacklist.Contains(addr) {
			fw.bans.Insert(addr, now, fw.banDurationBlacklist)
			fw.actuator.Ban(addr)
			fw.logger.Log("Blacklist:", addr)
			return Ban
		}
		fw.table[addr] = stats.New(port, now)
		fw.logger.Log("First packet:", addr)
		return Unbanned
	}

	// 4. Returning address.
	if entry.TimedOut(now, fw.timeout) {
		entry.Reset(port, now)
		fw.logger.Log("Reappearance:", addr)
		return Unbanned
	}

	entry.RemoveOldPorts(now, fw.timeout)
	entry.TouchPort(port, now)
	if entry.PortCount() > fw.maxPorts {
		// Fourth distinct port is the trigger: the check is strictly
		// greater-than, evaluated against the set including the port that
		// just arrived, per spec §4.2 step 4(b) and its worked example.
		delete(fw.table, addr)
		fw.bans.Insert(addr, now, fw.banDurationMultiport)
		fw.actuator.Ban(addr)
		fw.logger.Log("Multiport:", addr)
		return Ban
	}

	entry.CountPacket(now)
	if entry.HitLimit() {
		delete(fw.table, addr)
		fw.bans.Insert(addr, now, fw.banDurationFlood)
		fw.actuator.Ban(addr)
		fw.logger.Log("Flood:", addr)
		return Ban
	}
	return Unbanned
}

// IsActive reports whether addr is currently tracked and not timed out.
// Non-mutating. The original's defaulted timeout override parameter is
// vestigial and not reproduced here (spec §4.2, §9).
func (fw *Firewall) IsActive(addr netutils.Address) bool {
	entry, tracked := fw.table[addr]
	if !tracked {
		return false
	}
	return !entry.TimedOut(fw.clock.Now(), fw.timeout)
}

// ClearOldEntries runs housekeeping if more than purgeInterval seconds have
// passed since the last pass. Preserves the duplicate-unban quirk
// documented in spec §9: unban is invoked for every ban observed, not only
// those actually expired and removed.
func (fw *Firewall) ClearOldEntries() {
	now := fw.clock.Now()
	if now-fw.lastPurge <= fw.purgeInterval {
		return
	}

	for addr, entry := range fw.table {
		if entry.TimedOut(now, fw.timeout) {
			delete(fw.table, addr)
		}
	}

	var expired []netutils.Address
	fw.bans.Range(func(addr netutils.Address, r bans.Record) {
		// Quirk (spec §9): unban is asserted for every outstanding ban on
		// every purge pass, not only ones that are about to be removed.
		fw.actuator.Unban(addr)
		if r.Expired(now) {
			fw.logger.Log("Unban:", addr)
			expired = append(expired, addr)
		}
	})
	for _, addr := range expired {
		fw.bans.Remove(addr)
	}

	fw.lastPurge = now
}

// Shutdown invokes Unban for every still-banned address, a best-effort
// cleanup of the actuator's installed rules on process exit (spec §5).
func (fw *Firewall) Shutdown() {
	fw.bans.Range(func(addr netutils.Address, _ bans.Record) {
		fw.actuator.Unban(addr)
	})
}

// BanCount returns the number of currently banned addresses, for metrics.
func (fw *Firewall) BanCount() int {
	return fw.bans.Len()
}

// TrackedCount returns the number of addresses with live statistics, for
// metrics.
func (fw *Firewall) TrackedCount() int {
	return len(fw.table)
}
