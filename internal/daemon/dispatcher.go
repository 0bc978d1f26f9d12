package daemon

import (
	"context"

	"github.com/safing/peerguard/internal/capture"
	"github.com/safing/peerguard/internal/firewall"
	"github.com/safing/peerguard/internal/netutils"
)

// Dispatcher is the single goroutine that ever calls into *firewall.Firewall.
// The engine's table/bans/whitelist maps are plain, unsynchronized Go maps
// by design (spec §5: "No internal threads, no asynchronous suspension, no
// locks") — the original's single dispatch loop demultiplexed readiness on
// the raw-socket and query-socket descriptors itself, one goroutine total.
// Go's nfqueue and net bindings instead hand each descriptor its own
// reader goroutine, so CaptureModule, QueryModule, and PurgeModule each
// produce events from their own goroutine; Dispatcher is where those fan
// back in, so the engine still only ever sees one caller, the way
// safing/portmaster's interception module funnels packets from multiple
// queue readers through a single worker.
type Dispatcher struct {
	fw *firewall.Firewall

	packets chan packetEvent
	purges  chan struct{}
	queries chan queryEvent

	cancel context.CancelFunc
	done   chan struct{}
}

type packetEvent struct {
	addr netutils.Address
	port uint16
}

type queryEvent struct {
	addr  netutils.Address
	reply chan bool
}

// NewDispatcher returns a Dispatcher owning fw. fw must not be touched by
// any other caller once the Dispatcher is started.
func NewDispatcher(fw *firewall.Firewall) *Dispatcher {
	return &Dispatcher{
		fw:      fw,
		packets: make(chan packetEvent, 256),
		purges:  make(chan struct{}, 1),
		queries: make(chan queryEvent),
	}
}

// Start begins the dispatch loop. Must be the first module started and
// the last stopped, so it is consuming before any producer starts
// delivering and keeps consuming until every producer has stopped.
func (d *Dispatcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})

	go d.run(ctx)
	return nil
}

// run is the sole goroutine that invokes ReceivePacket, ClearOldEntries,
// and IsActive, so the engine's unsynchronized maps never see concurrent
// access regardless of how many goroutines produce events.
func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.packets:
			// Matches the original dispatch loop: every data packet is
			// immediately followed by a purge attempt (spec §5, "invokes
			// clear_old_entries after each data packet"); ClearOldEntries
			// itself no-ops unless purgeInterval has elapsed.
			d.fw.ReceivePacket(ev.addr, ev.port)
			d.fw.ClearOldEntries()
		case <-d.purges:
			d.fw.ClearOldEntries()
		case q := <-d.queries:
			q.reply <- d.fw.IsActive(q.addr)
		}
	}
}

// Stop cancels the dispatch loop and waits for it to exit.
func (d *Dispatcher) Stop() error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.done != nil {
		<-d.done
	}
	return nil
}

// Deliver enqueues a packet observation, implementing capture.Sink.
// Blocks only if the dispatch loop is backed up; returns immediately once
// the loop has stopped.
func (d *Dispatcher) Deliver(obs capture.Observation) {
	select {
	case d.packets <- packetEvent{addr: netutils.Address(obs.SrcAddr), port: obs.SrcPort}:
	case <-d.done:
	}
}

// RequestPurge enqueues a housekeeping tick. Non-blocking: a tick already
// queued absorbs this one, since ClearOldEntries coalesces naturally (it
// only acts once purgeInterval has elapsed since the last pass).
func (d *Dispatcher) RequestPurge() {
	select {
	case d.purges <- struct{}{}:
	default:
	}
}

// IsActive implements query.Checker by round-tripping the lookup through
// the dispatch loop instead of reading fw.table directly.
func (d *Dispatcher) IsActive(addr netutils.Address) bool {
	reply := make(chan bool, 1)
	select {
	case d.queries <- queryEvent{addr: addr, reply: reply}:
	case <-d.done:
		return false
	}
	select {
	case active := <-reply:
		return active
	case <-d.done:
		return false
	}
}
