package metrics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/safing/peerguard/internal/firewall"
	"github.com/safing/peerguard/internal/netutils"
)

func TestRecorderIncrementsCountersAndChains(t *testing.T) {
	next := &firewall.RecordingLogger{}
	r := NewRecorder(next)

	r.Log("Flood:", netutils.Address(1))
	r.Log("Flood:", netutils.Address(2))
	r.Log("Multiport:", netutils.Address(3))
	r.Log("Unknown tag:", netutils.Address(4))

	var buf bytes.Buffer
	r.WritePrometheus(&buf)
	out := buf.String()

	assert.Contains(t, out, `peerguard_bans_total{reason="flood"} 2`)
	assert.Contains(t, out, `peerguard_bans_total{reason="multiport"} 1`)
	assert.Len(t, next.Lines, 4, "every tag, known or not, still reaches the chained logger")
}

func TestRecorderWithNilNextDoesNotPanic(t *testing.T) {
	r := NewRecorder(nil)
	assert.NotPanics(t, func() {
		r.Log("Whitelist:", netutils.Address(1))
	})
}
