package firewall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/peerguard/internal/cidr"
	"github.com/safing/peerguard/internal/clock"
	"github.com/safing/peerguard/internal/netutils"
	"github.com/safing/peerguard/internal/stats"
)

func newTestFirewall(now int64) (*Firewall, *clock.Fake, *RecordingActuator, *RecordingLogger) {
	clk := clock.NewFake(now)
	act := &RecordingActuator{}
	log := &RecordingLogger{}
	fw := New(clk, WithActuator(act), WithAuditLogger(log))
	return fw, clk, act, log
}

func TestBenignFirstPacket(t *testing.T) {
	fw, _, act, log := newTestFirewall(0)
	addr := netutils.Address(0x01020304)

	status := fw.ReceivePacket(addr, 9000)

	assert.Equal(t, Unbanned, status)
	assert.Empty(t, act.Banned)
	require.Len(t, log.Lines, 1)
	assert.Equal(t, "First packet:", log.Lines[0].Tag)
}

func TestMultiportBan(t *testing.T) {
	fw, clk, act, log := newTestFirewall(0)
	addr := netutils.Address(0x01020304)

	fw.ReceivePacket(addr, 9000)
	clk.Set(1)
	fw.ReceivePacket(addr, 9001)
	clk.Set(2)
	fw.ReceivePacket(addr, 9002)
	clk.Set(3)
	status := fw.ReceivePacket(addr, 9003)

	assert.Equal(t, Ban, status)
	require.Len(t, act.Banned, 1)
	assert.Equal(t, addr, act.Banned[0])
	assert.Equal(t, "Multiport:", log.Lines[len(log.Lines)-1].Tag)
}

func TestThreeDistinctPortsNoBan(t *testing.T) {
	fw, clk, act, _ := newTestFirewall(0)
	addr := netutils.Address(0x01020304)

	fw.ReceivePacket(addr, 9000)
	clk.Set(1)
	fw.ReceivePacket(addr, 9001)
	clk.Set(2)
	status := fw.ReceivePacket(addr, 9002)

	assert.Equal(t, Unbanned, status)
	assert.Empty(t, act.Banned)
}

func TestFloodBan(t *testing.T) {
	fw, _, act, log := newTestFirewall(0)
	addr := netutils.Address(0x01020304)

	var last BanStatus
	for i := 0; i < 81; i++ {
		last = fw.ReceivePacket(addr, 9000)
	}

	assert.Equal(t, Ban, last)
	require.Len(t, act.Banned, 1)
	assert.Equal(t, "Flood:", log.Lines[len(log.Lines)-1].Tag)
}

func TestExactly80PacketsNoBan(t *testing.T) {
	fw, _, act, _ := newTestFirewall(0)
	addr := netutils.Address(0x01020304)

	var last BanStatus
	for i := 0; i < 80; i++ {
		last = fw.ReceivePacket(addr, 9000)
	}

	assert.Equal(t, Unbanned, last)
	assert.Empty(t, act.Banned)
}

func TestBanExpiryAndUnban(t *testing.T) {
	fw, clk, act, _ := newTestFirewall(0)
	addr := netutils.Address(0x01020304)

	fw.ReceivePacket(addr, 9000)
	clk.Set(1)
	fw.ReceivePacket(addr, 9001)
	clk.Set(2)
	fw.ReceivePacket(addr, 9002)
	clk.Set(3)
	status := fw.ReceivePacket(addr, 9003)
	require.Equal(t, Ban, status)

	clk.Set(3 + BanDurationMultiport + 1)
	status = fw.ReceivePacket(addr, 9000)
	assert.Equal(t, Unban, status)
	require.Len(t, act.Unbanned, 1)

	clk.Advance(1)
	status = fw.ReceivePacket(addr, 9000)
	assert.Equal(t, Unbanned, status)
}

func TestBannedAddressStaysBannedUntilExpiry(t *testing.T) {
	fw, clk, _, _ := newTestFirewall(0)
	addr := netutils.Address(0x01020304)

	fw.ReceivePacket(addr, 9000)
	clk.Set(1)
	fw.ReceivePacket(addr, 9001)
	clk.Set(2)
	fw.ReceivePacket(addr, 9002)
	clk.Set(3)
	require.Equal(t, Ban, fw.ReceivePacket(addr, 9003))

	clk.Set(10)
	assert.Equal(t, Banned, fw.ReceivePacket(addr, 9004))
}

func TestWhitelistViaExceptions(t *testing.T) {
	fw, _, act, log := newTestFirewall(0)
	exceptions, err := cidr.New(cidr.Prefix{Network: "11.0.0.0", Bits: 8})
	require.NoError(t, err)
	fw.SetBlacklist(nil, exceptions)

	// Not a special address: 10.0.0.0/8 would short-circuit before the
	// exceptions check and never log "Whitelist:".
	addr := netutils.Address(0x0B010101) // 11.1.1.1
	status := fw.ReceivePacket(addr, 9000)
	assert.Equal(t, Unbanned, status)
	assert.Equal(t, "Whitelist:", log.Lines[0].Tag)

	for i := 0; i < 81; i++ {
		status = fw.ReceivePacket(addr, 9000)
	}
	assert.Equal(t, Unbanned, status)
	assert.Empty(t, act.Banned)
}

func TestSpecialAddressAlwaysUnbanned(t *testing.T) {
	fw, _, act, log := newTestFirewall(0)
	addr := netutils.Address(0x7F000001) // 127.0.0.1

	for i := 0; i < 200; i++ {
		assert.Equal(t, Unbanned, fw.ReceivePacket(addr, 9000))
	}
	assert.Empty(t, act.Banned)
	assert.Empty(t, log.Lines)
}

func TestBlacklistOnFirstSighting(t *testing.T) {
	fw, _, act, log := newTestFirewall(0)
	blacklist, err := cidr.New(cidr.Prefix{Network: "1.2.3.0", Bits: 24})
	require.NoError(t, err)
	fw.SetBlacklist(blacklist, nil)

	addr := netutils.Address(0x01020304)
	status := fw.ReceivePacket(addr, 9000)

	assert.Equal(t, Ban, status)
	require.Len(t, act.Banned, 1)
	assert.Equal(t, "Blacklist:", log.Lines[0].Tag)
}

func TestReappearanceResetsStats(t *testing.T) {
	fw, clk, _, log := newTestFirewall(0)
	addr := netutils.Address(0x01020304)

	fw.ReceivePacket(addr, 9000)
	clk.Set(stats.Timeout + 1)
	status := fw.ReceivePacket(addr, 9001)

	assert.Equal(t, Unbanned, status)
	assert.Equal(t, "Reappearance:", log.Lines[len(log.Lines)-1].Tag)
}

func TestIsActiveNonMutating(t *testing.T) {
	fw, clk, _, log := newTestFirewall(0)
	addr := netutils.Address(0x01020304)
	fw.ReceivePacket(addr, 9000)
	logLenBefore := len(log.Lines)

	assert.True(t, fw.IsActive(addr))
	clk.Set(stats.Timeout + 1)
	assert.False(t, fw.IsActive(addr))

	assert.Len(t, log.Lines, logLenBefore, "IsActive must not log")
}

func TestDisjointnessInvariant(t *testing.T) {
	fw, clk, _, _ := newTestFirewall(0)
	addr := netutils.Address(0x01020304)

	fw.ReceivePacket(addr, 9000)
	clk.Set(1)
	fw.ReceivePacket(addr, 9001)
	clk.Set(2)
	fw.ReceivePacket(addr, 9002)
	clk.Set(3)
	fw.ReceivePacket(addr, 9003) // bans it

	_, inTable := fw.table[addr]
	_, inBans := fw.bans.Get(addr)
	assert.False(t, inTable)
	assert.True(t, inBans)
}

func TestWhitelistedNeverBanned(t *testing.T) {
	fw, _, act, _ := newTestFirewall(0)
	addr := netutils.Address(0x01020304)
	fw.AddWhitelist(addr)

	for i := 0; i < 200; i++ {
		fw.ReceivePacket(addr, uint16(9000+i))
	}

	assert.Empty(t, act.Banned)
	_, inBans := fw.bans.Get(addr)
	assert.False(t, inBans)
}

func TestPurgeRemovesStaleEntriesAndReassertsUnban(t *testing.T) {
	fw, clk, act, log := newTestFirewall(0)
	addr := netutils.Address(0x01020304)
	banned := netutils.Address(0x05060708)

	fw.ReceivePacket(addr, 9000)
	fw.table[banned] = stats.New(1, 0) // seed a second entry directly
	fw.bans.Insert(banned, 0, BanDurationFlood)

	clk.Set(PurgeInterval + 1)
	fw.ClearOldEntries()
	assert.Contains(t, act.Unbanned, banned, "spec §9 quirk: unban is asserted on every pass, even before expiry")
	_, stillBanned := fw.bans.Get(banned)
	assert.True(t, stillBanned, "but the ban record itself is only removed once actually expired")

	// Second pass, now past expiry: the ban record is finally removed and
	// the unban is logged.
	clk.Set(PurgeInterval + 1 + BanDurationFlood + 1)
	fw.ClearOldEntries()

	_, stillBanned = fw.bans.Get(banned)
	assert.False(t, stillBanned)
	found := false
	for _, l := range log.Lines {
		if l.Tag == "Unban:" && l.Addr == banned {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPurgeNoopBeforeInterval(t *testing.T) {
	fw, clk, _, _ := newTestFirewall(0)
	addr := netutils.Address(0x01020304)
	fw.table[addr] = stats.New(1, 0)

	clk.Set(PurgeInterval) // exactly at boundary: "<=" means no-op
	fw.ClearOldEntries()

	_, tracked := fw.table[addr]
	assert.True(t, tracked)
}

func TestShutdownUnbansEverything(t *testing.T) {
	fw, _, act, _ := newTestFirewall(0)
	a1 := netutils.Address(0x01020304)
	a2 := netutils.Address(0x05060708)
	fw.bans.Insert(a1, 0, BanDurationFlood)
	fw.bans.Insert(a2, 0, BanDurationFlood)

	fw.Shutdown()

	assert.ElementsMatch(t, []netutils.Address{a1, a2}, act.Unbanned)
}
