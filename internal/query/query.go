// Package query implements the local UDP query responder: a cooperating
// application can ask whether a remote address is currently an active
// peer, per spec §6 ("Local query protocol"). Ported from the verification
// socket handling in HaxWall.cpp's main loop (the VERIFICATION_PORT
// branch), given its own goroutine here; IsActive calls are routed through
// Checker so the caller (internal/daemon.Dispatcher) can serialize them
// against the engine's other callers instead of this package touching
// engine state directly.
package query

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/safing/peerguard/internal/netutils"
)

// Port is the fixed loopback port the responder binds, per spec §6.
const Port = 1337

// Checker is the read-only subset of the firewall engine the responder
// needs.
type Checker interface {
	IsActive(addr netutils.Address) bool
}

// AuditLogger receives one call per query received, matching the engine's
// own audit logging contract.
type AuditLogger interface {
	Log(tag string, addr netutils.Address)
}

// Responder serves the local query protocol.
type Responder struct {
	conn    *net.UDPConn
	checker Checker
	logger  AuditLogger
}

// Listen binds 127.0.0.1:1337 and returns a Responder ready to Serve.
func Listen(checker Checker, logger AuditLogger) (*Responder, error) {
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: Port}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("query: failed to bind %s: %w", addr, err)
	}
	return &Responder{conn: conn, checker: checker, logger: logger}, nil
}

// Serve reads datagrams until the connection is closed. Datagrams of any
// length other than exactly 4 bytes are silently discarded, per spec §6.
func (r *Responder) Serve() error {
	// One byte of headroom: a longer datagram is truncated to len(buf), so
	// a 4-byte buffer could not tell it apart from a valid query.
	buf := make([]byte, 5)
	for {
		n, remote, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		if n != 4 {
			continue
		}

		addr := netutils.Address(binary.BigEndian.Uint32(buf[:4]))
		r.logger.Log("Query:", addr)

		reply := byte(0)
		if r.checker.IsActive(addr) {
			reply = 1
		}
		_, _ = r.conn.WriteToUDP([]byte{reply}, remote)
	}
}

// Close stops the responder.
func (r *Responder) Close() error {
	return r.conn.Close()
}
