package bans

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/safing/peerguard/internal/netutils"
)

func TestInsertAndGet(t *testing.T) {
	tbl := NewTable()
	a := netutils.Address(1)

	tbl.Insert(a, 100, 60)
	r, ok := tbl.Get(a)
	assert.True(t, ok)
	assert.Equal(t, int64(160), r.Expiry)
}

func TestExpired(t *testing.T) {
	r := Record{Expiry: 100}
	assert.False(t, r.Expired(99))
	assert.True(t, r.Expired(100))
	assert.True(t, r.Expired(101))
}

func TestRemoveAndLen(t *testing.T) {
	tbl := NewTable()
	tbl.Insert(netutils.Address(1), 0, 10)
	tbl.Insert(netutils.Address(2), 0, 10)
	assert.Equal(t, 2, tbl.Len())

	tbl.Remove(netutils.Address(1))
	assert.Equal(t, 1, tbl.Len())
	_, ok := tbl.Get(netutils.Address(1))
	assert.False(t, ok)
}

func TestRangeVisitsEveryEntry(t *testing.T) {
	tbl := NewTable()
	tbl.Insert(netutils.Address(1), 0, 10)
	tbl.Insert(netutils.Address(2), 0, 10)

	seen := make(map[netutils.Address]bool)
	tbl.Range(func(addr netutils.Address, r Record) {
		seen[addr] = true
	})
	assert.Len(t, seen, 2)
}
