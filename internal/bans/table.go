// Package bans holds the address -> expiry records the firewall engine
// installs when it blocks an address, ported from the original's
// BanInfo/bans map (HaxWall/ban.h).
package bans

import "github.com/safing/peerguard/internal/netutils"

// Record is a single ban's expiry time, as a Unix timestamp in seconds.
type Record struct {
	Expiry int64
}

// Expired reports whether the ban has passed its expiry at now.
func (r Record) Expired(now int64) bool {
	return now >= r.Expiry
}

// Table is the address -> Record map.
type Table struct {
	m map[netutils.Address]Record
}

// NewTable returns an empty ban table pre-sized for sustained attack
// traffic, per spec §5 ("pre-size both maps to accommodate tens of
// thousands of entries").
func NewTable() *Table {
	return &Table{m: make(map[netutils.Address]Record, 1<<16)}
}

// Get returns the record for addr, if any.
func (t *Table) Get(addr netutils.Address) (Record, bool) {
	r, ok := t.m[addr]
	return r, ok
}

// Insert adds or replaces a ban expiring durationSeconds after now.
func (t *Table) Insert(addr netutils.Address, now, durationSeconds int64) {
	t.m[addr] = Record{Expiry: now + durationSeconds}
}

// Remove deletes addr's ban record, if any.
func (t *Table) Remove(addr netutils.Address) {
	delete(t.m, addr)
}

// Len returns the number of currently banned addresses.
func (t *Table) Len() int {
	return len(t.m)
}

// Range calls fn for every (address, record) pair. fn must not mutate the
// table; collect addresses to remove and call Remove after Range returns.
func (t *Table) Range(fn func(addr netutils.Address, r Record)) {
	for addr, r := range t.m {
		fn(addr, r)
	}
}
