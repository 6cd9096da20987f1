// Package client is the SDK a CLI or another Go program uses to talk
// to a ringkv cluster. It speaks the same binary frame protocol every
// node speaks on the cluster port and forwards through the
// client-facing opcodes (200, 202) so callers never need to know which
// node actually leads a key.
package client

import (
	"errors"
	"fmt"
	"net"
	"time"

	"ringkv/internal/wire"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("client: key not found")

// Client is a thin, connection-per-call wrapper around one node's
// cluster-port address.
type Client struct {
	addr    string
	timeout time.Duration
}

// New returns a Client that dials addr (host:port) for every call.
// addr need not be the leader for any particular key — any node in the
// cluster will forward through its client-proxy block.
func New(addr string, timeout time.Duration) *Client {
	return &Client{addr: addr, timeout: timeout}
}

// Get reads key's value. Returns ErrNotFound if the response body is
// empty.
func (c *Client) Get(key uint64) ([]byte, error) {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", c.addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := wire.WriteFrame(conn, wire.OpClientRead, wire.PutUint64(nil, key)); err != nil {
		return nil, fmt.Errorf("client: send read: %w", err)
	}
	f, err := wire.ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("client: read response: %w", err)
	}
	if len(f.Payload) == 0 {
		return nil, ErrNotFound
	}
	return f.Payload, nil
}

// Put stores value under key, driving the three-step write handshake
// on the caller's behalf. Returns the value that was current before
// this write (the "permission" message), which may be empty if the key
// had no prior value.
func (c *Client) Put(key uint64, value []byte) (previous []byte, err error) {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", c.addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := wire.WriteFrame(conn, wire.OpClientWrite, wire.PutUint64(nil, key)); err != nil {
		return nil, fmt.Errorf("client: send write-start: %w", err)
	}

	permission, err := wire.ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("client: read permission message: %w", err)
	}
	previous = permission.Payload

	if err := wire.WriteResponse(conn, value); err != nil {
		return nil, fmt.Errorf("client: send new value: %w", err)
	}

	ack, err := wire.ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("client: read ack: %w", err)
	}
	if !wire.IsAck(ack) {
		return nil, fmt.Errorf("client: write not acknowledged, got opcode %d", ack.Opcode)
	}
	return previous, nil
}

// Nodes fetches the raw node list from addr via op 10, for CLI
// introspection. It does not go through the client-proxy opcodes since
// membership is node-local, not leader-routed.
func (c *Client) Nodes() ([]byte, error) {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", c.addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := wire.WriteFrame(conn, wire.OpNodeList, nil); err != nil {
		return nil, fmt.Errorf("client: send node-list request: %w", err)
	}
	f, err := wire.ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("client: read node-list response: %w", err)
	}
	return f.Payload, nil
}

// Announce sends a raw join announcement (op 13) for selfID to addr,
// taken from the TCP connection's own source address the same way a
// real join does. Exposed for operators who want to hand-register a
// node into a running ring without going through the full bootstrap
// procedure — e.g. while debugging a stuck join.
func (c *Client) Announce(selfID uint64) error {
	conn, err := net.DialTimeout("tcp", c.addr, c.timeout)
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", c.addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := wire.WriteFrame(conn, wire.OpJoinAnnounce, wire.PutUint64(nil, selfID)); err != nil {
		return fmt.Errorf("client: send join announce: %w", err)
	}
	f, err := wire.ReadFrame(conn)
	if err != nil {
		return fmt.Errorf("client: read announce response: %w", err)
	}
	if !wire.IsAck(f) {
		return fmt.Errorf("client: announce not acknowledged, got opcode %d", f.Opcode)
	}
	return nil
}

// PeerInfo is one entry decoded from a node-list response.
type PeerInfo struct {
	ID   uint64
	IPv4 string
}

// ParseNodes decodes the [id: u64][ipv4: 4 bytes]... body Nodes
// returns into a readable list, for CLI display.
func ParseNodes(payload []byte) ([]PeerInfo, error) {
	const entrySize = 12
	if len(payload)%entrySize != 0 {
		return nil, fmt.Errorf("client: node list length %d not a multiple of %d", len(payload), entrySize)
	}
	peers := make([]PeerInfo, 0, len(payload)/entrySize)
	for i := 0; i < len(payload); i += entrySize {
		id := wire.Uint64At(payload, i)
		b := payload[i+8 : i+12]
		ipv4 := fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3])
		peers = append(peers, PeerInfo{ID: id, IPv4: ipv4})
	}
	return peers, nil
}
