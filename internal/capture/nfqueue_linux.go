//go:build linux

package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/florianl/go-nfqueue"
	"golang.org/x/sys/unix"
)

// Sink receives accepted observations off the wire. Queue calls Deliver
// from its own handler goroutine and does no serialization itself; the
// firewall engine is single-owner (spec §5), so the Sink implementation
// (internal/daemon.Dispatcher) funnels deliveries onto one channel read by
// one goroutine.
type Sink interface {
	Deliver(Observation)
}

// Queue wraps one nfqueue classification channel for one address family.
// It never drops packets by verdict — blocking is enforced out-of-band by
// the actuator's iptables rules — it only classifies and forwards
// observations, mirroring the split between nfqueue classification and
// iptables enforcement in the teacher's
// service/firewall/interception/nfqueue_linux.go.
type Queue struct {
	id     uint16
	family uint8
	nf     *nfqueue.Nfqueue
	cancel context.CancelFunc
}

// OpenQueue opens an nfqueue with the given queue number for IPv4 (v6=false)
// or IPv6 (v6=true) traffic.
func OpenQueue(qid uint16, v6 bool) (*Queue, error) {
	family := uint8(unix.AF_INET)
	if v6 {
		family = unix.AF_INET6
	}

	cfg := &nfqueue.Config{
		NfQueue:      qid,
		MaxPacketLen: 1600,
		MaxQueueLen:  0xffff,
		AfFamily:     family,
		Copymode:     nfqueue.NfQnlCopyPacket,
		ReadTimeout:  1000 * time.Millisecond,
		WriteTimeout: 1000 * time.Millisecond,
	}

	nf, err := nfqueue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("capture: failed to open nfqueue %d: %w", qid, err)
	}

	return &Queue{id: qid, family: family, nf: nf}, nil
}

// Run registers the packet handler and blocks until ctx is canceled. Every
// accepted frame is decoded and, if it passes the ingress filter, handed
// to sink; the verdict is always Accept since enforcement happens via the
// actuator's iptables rules, not the queue verdict.
func (q *Queue) Run(ctx context.Context, sink Sink) error {
	ctx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	handler := func(attrs nfqueue.Attribute) int {
		if attrs.PacketID == nil {
			return 0
		}
		if attrs.Payload != nil {
			if obs, err := DecodeIPv4UDP(*attrs.Payload); err == nil {
				sink.Deliver(obs)
			}
		}
		_ = q.nf.SetVerdict(*attrs.PacketID, nfqueue.NfAccept)
		return 0
	}

	errHandler := func(error) int { return 0 }

	if err := q.nf.RegisterWithErrorFunc(ctx, handler, errHandler); err != nil {
		return fmt.Errorf("capture: failed to register nfqueue handler: %w", err)
	}

	<-ctx.Done()
	return nil
}

// Close stops the queue.
func (q *Queue) Close() error {
	if q.cancel != nil {
		q.cancel()
	}
	return q.nf.Close()
}
