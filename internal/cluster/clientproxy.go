package cluster

import (
	"log"
	"net"

	"ringkv/internal/ring"
	"ringkv/internal/wire"
)

// ClientProxyBlock forwards external client requests to whichever node
// currently leads the requested key, retrying once against a
// recomputed leader if the first connect attempt fails. It holds no
// state of its own beyond the shared node list.
type ClientProxyBlock struct {
	nodes          *ring.NodeList
	faultTolerance *FaultToleranceBlock
}

// NewClientProxyBlock wires a ClientProxyBlock.
func NewClientProxyBlock(nodes *ring.NodeList, ft *FaultToleranceBlock) *ClientProxyBlock {
	return &ClientProxyBlock{nodes: nodes, faultTolerance: ft}
}

// HandleClientRead serves op 200: length 13, body key. Forwards an
// op-1 read to the leader and relays the response verbatim.
func (c *ClientProxyBlock) HandleClientRead(conn net.Conn, payload []byte) {
	if len(payload) != 8 {
		logMalformed(conn, "client-read", len(payload))
		return
	}
	key := wire.Uint64At(payload, 0)

	leader := ring.Leader(c.nodes.Snapshot(), key)
	resp, err := c.dialLeaderWithRetry(leader, key, wire.OpRead, payload)
	if err != nil {
		log.Printf("client-proxy: read key %d: %v", key, err)
		return
	}
	if err := wire.WriteResponse(conn, resp.Payload); err != nil {
		logWriteErr("client-read response", err)
	}
}

// HandleClientWrite serves op 202: length 13, body key. Relays the
// three-step write handshake between client and leader over two
// separate connections (client<->proxy, proxy<->leader), applying the
// same leader-retry rule as HandleClientRead on the initial connect.
func (c *ClientProxyBlock) HandleClientWrite(conn net.Conn, payload []byte) {
	if len(payload) != 8 {
		logMalformed(conn, "client-write", len(payload))
		return
	}
	key := wire.Uint64At(payload, 0)

	leader := ring.Leader(c.nodes.Snapshot(), key)
	leaderConn, err := c.dialLeaderForWriteWithRetry(leader, key)
	if err != nil {
		log.Printf("client-proxy: write key %d: %v", key, err)
		return
	}
	defer leaderConn.Close()

	// Relay the permission message (current value) to the client.
	permission, err := wire.ReadFrame(leaderConn)
	if err != nil {
		log.Printf("client-proxy: read permission for key %d: %v", key, err)
		return
	}
	if err := wire.WriteResponse(conn, permission.Payload); err != nil {
		logWriteErr("client-write permission", err)
		return
	}

	// Relay the client's new-value message to the leader.
	newValue, err := wire.ReadFrame(conn)
	if err != nil {
		log.Printf("client-proxy: read new value for key %d: %v", key, err)
		return
	}
	if err := wire.WriteFrame(leaderConn, newValue.Opcode, newValue.Payload); err != nil {
		log.Printf("client-proxy: forward new value for key %d: %v", key, err)
		return
	}

	// Relay the final ack back to the client.
	ack, err := wire.ReadFrame(leaderConn)
	if err != nil {
		log.Printf("client-proxy: read ack for key %d: %v", key, err)
		return
	}
	if err := wire.WriteFrame(conn, ack.Opcode, ack.Payload); err != nil {
		logWriteErr("client-write ack", err)
	}
}

// dialLeaderWithRetry sends a single-message request to leader and
// returns its response, triggering peer-down and retrying once against
// a recomputed leader on the first connect failure.
func (c *ClientProxyBlock) dialLeaderWithRetry(leader ring.PeerNode, key uint64, opcode byte, payload []byte) (wire.Frame, error) {
	f, err := sendAndAwait(clusterAddr(leader.IPv4), opcode, payload)
	if err == nil {
		return f, nil
	}

	log.Printf("client-proxy: leader %d unreachable for key %d, triggering peer-down and retrying once", leader.ID, key)
	if c.faultTolerance != nil {
		c.faultTolerance.PeerDown(leader.ID)
	}

	retryLeader := ring.Leader(c.nodes.Snapshot(), key)
	return sendAndAwait(clusterAddr(retryLeader.IPv4), opcode, payload)
}

// dialLeaderForWriteWithRetry opens the long-lived connection the
// write handshake runs over, with the same connect-failure retry rule.
func (c *ClientProxyBlock) dialLeaderForWriteWithRetry(leader ring.PeerNode, key uint64) (net.Conn, error) {
	payload := wire.PutUint64(nil, key)

	conn, err := dialAndStartWrite(leader.IPv4, payload)
	if err == nil {
		return conn, nil
	}

	log.Printf("client-proxy: leader %d unreachable for write on key %d, triggering peer-down and retrying once", leader.ID, key)
	if c.faultTolerance != nil {
		c.faultTolerance.PeerDown(leader.ID)
	}

	retryLeader := ring.Leader(c.nodes.Snapshot(), key)
	return dialAndStartWrite(retryLeader.IPv4, payload)
}

// dialAndStartWrite opens a connection to a leader and sends the op-2
// write-start frame, leaving the connection open for the rest of the
// handshake.
func dialAndStartWrite(ipv4 string, keyPayload []byte) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", clusterAddr(ipv4), DialTimeout)
	if err != nil {
		return nil, err
	}
	if err := wire.WriteFrame(conn, wire.OpWriteStart, keyPayload); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
