// Package metrics exposes counters for the firewall's ban lifecycle,
// adapted from the Counter wrapper in safing/portmaster's
// base/metrics/metric_counter.go.
package metrics

import (
	vm "github.com/VictoriaMetrics/metrics"

	"github.com/safing/peerguard/internal/firewall"
	"github.com/safing/peerguard/internal/netutils"
)

// Recorder wraps an underlying firewall.AuditLogger and additionally
// increments VictoriaMetrics counters keyed by the audit tag, so bans can
// be broken down by reason (multiport/flood/blacklist) without widening
// the engine's Actuator interface (spec §4.2 expansion note).
type Recorder struct {
	next firewall.AuditLogger
	set  *vm.Set

	firstPacket *vm.Counter
	reappear    *vm.Counter
	multiport   *vm.Counter
	flood       *vm.Counter
	blacklist   *vm.Counter
	whitelist   *vm.Counter
	unban       *vm.Counter
	query       *vm.Counter
}

// NewRecorder returns a Recorder chaining to next (which may be nil). Each
// Recorder owns its own metric set rather than registering into
// VictoriaMetrics' global default set, so more than one can exist in the
// same process (tests in particular) without a duplicate-registration
// panic; WritePrometheus still exposes a single Recorder's set to a scrape
// handler.
func NewRecorder(next firewall.AuditLogger) *Recorder {
	set := vm.NewSet()
	r := &Recorder{
		next:        next,
		set:         set,
		firstPacket: set.NewCounter("peerguard_events_total{tag=\"first_packet\"}"),
		reappear:    set.NewCounter("peerguard_events_total{tag=\"reappearance\"}"),
		multiport:   set.NewCounter("peerguard_bans_total{reason=\"multiport\"}"),
		flood:       set.NewCounter("peerguard_bans_total{reason=\"flood\"}"),
		blacklist:   set.NewCounter("peerguard_bans_total{reason=\"blacklist\"}"),
		whitelist:   set.NewCounter("peerguard_events_total{tag=\"whitelist\"}"),
		unban:       set.NewCounter("peerguard_unbans_total"),
		query:       set.NewCounter("peerguard_queries_total"),
	}
	return r
}

// Log implements firewall.AuditLogger.
func (r *Recorder) Log(tag string, addr netutils.Address) {
	switch tag {
	case "First packet:":
		r.firstPacket.Inc()
	case "Reappearance:":
		r.reappear.Inc()
	case "Multiport:":
		r.multiport.Inc()
	case "Flood:":
		r.flood.Inc()
	case "Blacklist:":
		r.blacklist.Inc()
	case "Whitelist:":
		r.whitelist.Inc()
	case "Unban:":
		r.unban.Inc()
	case "Query:":
		r.query.Inc()
	}
	if r.next != nil {
		r.next.Log(tag, addr)
	}
}

// WritePrometheus writes r's metric set in Prometheus exposition format,
// for a scrape endpoint.
func (r *Recorder) WritePrometheus(w interface {
	Write([]byte) (int, error)
},
) {
	r.set.WritePrometheus(w)
}
