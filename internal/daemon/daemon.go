// Package daemon wires the firewall engine to its capture queues, purge
// loop, and query responder as mgr.Modules, the way safing/portmaster's
// firewall/module.go wires the engine to its own interception and DNS
// modules. Every module in this package talks to the engine only through
// a Dispatcher (dispatcher.go), never directly, so the engine itself can
// stay free of locks.
package daemon

import (
	"context"
	"time"

	"github.com/tevino/abool"

	"github.com/safing/peerguard/internal/capture"
	"github.com/safing/peerguard/internal/query"
)

// CaptureModule runs one nfqueue per bound address family and feeds
// accepted packets into the dispatcher.
type CaptureModule struct {
	dispatcher *Dispatcher
	v4Queue    uint16
	v6Queue    uint16
	enableV6   bool

	queues  []*capture.Queue
	cancel  context.CancelFunc
	done    chan struct{}
	stopped *abool.AtomicBool
}

// NewCaptureModule returns a module that will open nfqueue v4Queue (and,
// if enableV6, v6Queue) once started, delivering accepted packets to
// dispatcher.
func NewCaptureModule(dispatcher *Dispatcher, v4Queue, v6Queue uint16, enableV6 bool) *CaptureModule {
	return &CaptureModule{dispatcher: dispatcher, v4Queue: v4Queue, v6Queue: v6Queue, enableV6: enableV6, stopped: abool.New()}
}

// Start opens the configured nfqueues and begins dispatching packets.
func (m *CaptureModule) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	q4, err := capture.OpenQueue(m.v4Queue, false)
	if err != nil {
		cancel()
		return err
	}
	m.queues = append(m.queues, q4)

	if m.enableV6 {
		q6, err := capture.OpenQueue(m.v6Queue, true)
		if err != nil {
			cancel()
			return err
		}
		m.queues = append(m.queues, q6)
	}

	var running int
	errCh := make(chan error, len(m.queues))
	for _, q := range m.queues {
		running++
		go func(q *capture.Queue) {
			errCh <- q.Run(ctx, m.dispatcher)
		}(q)
	}

	go func() {
		for i := 0; i < running; i++ {
			<-errCh
		}
		close(m.done)
	}()

	return nil
}

// Stop closes every open queue and waits for its goroutine to exit.
// Idempotent: a second call is a no-op, matching the teacher's use of an
// atomic flag to guard module shutdown against being driven twice.
func (m *CaptureModule) Stop() error {
	if !m.stopped.SetToIf(false, true) {
		return nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	for _, q := range m.queues {
		_ = q.Close()
	}
	if m.done != nil {
		<-m.done
	}
	return nil
}

// QueryModule runs the local UDP query responder.
type QueryModule struct {
	responder  *query.Responder
	dispatcher *Dispatcher
	logger     query.AuditLogger
	done       chan struct{}
	stopped    *abool.AtomicBool
}

// NewQueryModule returns a module serving the local query protocol,
// answering lookups through dispatcher rather than the engine directly.
func NewQueryModule(dispatcher *Dispatcher, logger query.AuditLogger) *QueryModule {
	return &QueryModule{dispatcher: dispatcher, logger: logger, stopped: abool.New()}
}

// Start binds the query socket and begins serving.
func (m *QueryModule) Start(ctx context.Context) error {
	r, err := query.Listen(m.dispatcher, m.logger)
	if err != nil {
		return err
	}
	m.responder = r
	m.done = make(chan struct{})
	go func() {
		_ = m.responder.Serve()
		close(m.done)
	}()
	return nil
}

// Stop closes the query socket. Idempotent.
func (m *QueryModule) Stop() error {
	if !m.stopped.SetToIf(false, true) {
		return nil
	}
	if m.responder == nil {
		return nil
	}
	err := m.responder.Close()
	<-m.done
	return err
}

// PurgeModule runs periodic ClearOldEntries housekeeping independent of
// packet arrivals, so bans and stale stats are reclaimed even during a
// lull in traffic. ReceivePacket itself never purges; without this
// ticker, ClearOldEntries runs only when the Dispatcher handles a packet
// (it calls it after each one). The ticker is an additive safety net for
// the always-on daemon context.
type PurgeModule struct {
	dispatcher *Dispatcher
	interval   time.Duration
	cancel     context.CancelFunc
	done       chan struct{}
	stopped    *abool.AtomicBool
}

// NewPurgeModule returns a module that requests a purge from dispatcher
// every interval.
func NewPurgeModule(dispatcher *Dispatcher, interval time.Duration) *PurgeModule {
	return &PurgeModule{dispatcher: dispatcher, interval: interval, stopped: abool.New()}
}

// Start begins the ticker loop.
func (m *PurgeModule) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.dispatcher.RequestPurge()
			}
		}
	}()
	return nil
}

// Stop cancels the ticker loop. Idempotent.
func (m *PurgeModule) Stop() error {
	if !m.stopped.SetToIf(false, true) {
		return nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	if m.done != nil {
		<-m.done
	}
	return nil
}
