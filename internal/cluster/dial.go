package cluster

import (
	"fmt"
	"net"
	"time"

	"ringkv/internal/wire"
)

// DialTimeout bounds how long a cross-block call waits to connect to a
// peer. The design notes in §5 leave timeouts unspecified and call
// adding one an implementer's choice; this mirrors the teacher's own
// http.Client{Timeout: 10 * time.Second} for the same reason — an
// unreachable peer must not hang a caller forever.
const DialTimeout = 5 * time.Second

// OpTimeout bounds how long a single request/response round trip may
// take once connected.
const OpTimeout = 10 * time.Second

// sendAndAwait opens a fresh connection to addr, writes one frame, and
// reads exactly one frame back. Used by every cross-node call that
// isn't part of a multi-message handshake already holding its own
// connection open (replication, fault-tolerance notifications, the
// client-proxy's first hop, the join procedure).
func sendAndAwait(addr string, opcode byte, payload []byte) (wire.Frame, error) {
	conn, err := net.DialTimeout("tcp", addr, DialTimeout)
	if err != nil {
		return wire.Frame{}, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(OpTimeout))

	if err := wire.WriteFrame(conn, opcode, payload); err != nil {
		return wire.Frame{}, fmt.Errorf("send to %s: %w", addr, err)
	}
	f, err := wire.ReadFrame(conn)
	if err != nil {
		return wire.Frame{}, fmt.Errorf("read from %s: %w", addr, err)
	}
	return f, nil
}

// clusterAddr formats a peer's ipv4 with the fixed cluster port.
func clusterAddr(ipv4 string) string {
	return net.JoinHostPort(ipv4, "52525")
}

// expectAck returns an error if f is not the two-byte "ok" body.
func expectAck(f wire.Frame) error {
	if !wire.IsAck(f) {
		return fmt.Errorf("expected ack, got opcode %d payload %v", f.Opcode, f.Payload)
	}
	return nil
}
