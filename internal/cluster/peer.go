package cluster

import (
	"log"
	"net"

	"ringkv/internal/ring"
	"ringkv/internal/wire"
)

// peerRequest is one unit of work queued to the Peer block's serial
// processing goroutine.
type peerRequest struct {
	conn    net.Conn
	opcode  byte
	payload []byte
}

// PeerBlock serves the node list and accepts join announcements. Like
// Backup, its handlers are short and touch only the shared node list,
// so it processes requests serially off one channel.
type PeerBlock struct {
	nodes  *ring.NodeList
	selfID uint64
	reqs   chan peerRequest
}

// NewPeerBlock creates a PeerBlock and starts its serial worker.
func NewPeerBlock(nodes *ring.NodeList, selfID uint64) *PeerBlock {
	p := &PeerBlock{nodes: nodes, selfID: selfID, reqs: make(chan peerRequest, 64)}
	go p.run()
	return p
}

// Submit queues one request for serial processing.
func (p *PeerBlock) Submit(conn net.Conn, opcode byte, payload []byte) {
	p.reqs <- peerRequest{conn: conn, opcode: opcode, payload: payload}
}

func (p *PeerBlock) run() {
	for req := range p.reqs {
		switch req.opcode {
		case wire.OpNodeList:
			p.handleNodeList(req.conn)
		case wire.OpJoinAnnounce:
			p.handleJoinAnnounce(req.conn, req.payload)
		default:
			log.Printf("peer: unexpected opcode %d queued", req.opcode)
		}
		req.conn.Close()
	}
}

// handleNodeList serves op 10: each PeerNode is serialized as
// [id: u64][ipv4: 4 bytes] concatenated. The local node always reports
// its own ipv4 as 127.0.0.1; substitution of the sender's real address
// for any 127.0.0.1 entry is the RECEIVER's job (see join.go), not
// this handler's.
func (p *PeerBlock) handleNodeList(conn net.Conn) {
	body, err := EncodeNodeList(p.nodes.Snapshot())
	if err != nil {
		log.Printf("peer: encode node list: %v", err)
		return
	}
	if err := wire.WriteResponse(conn, body); err != nil {
		logWriteErr("node-list response", err)
	}
}

// handleJoinAnnounce serves op 13: length 13, body new_id. The
// announced ipv4 is taken from the TCP peer address of the inbound
// connection; non-IPv4 addresses are rejected.
func (p *PeerBlock) handleJoinAnnounce(conn net.Conn, payload []byte) {
	if len(payload) != 8 {
		logMalformed(conn, "join-announce", len(payload))
		return
	}
	newID := wire.Uint64At(payload, 0)

	ipv4, err := remoteIPv4(conn)
	if err != nil {
		log.Printf("peer: join announce from %s rejected: %v", conn.RemoteAddr(), err)
		return
	}

	p.nodes.Add(ring.PeerNode{ID: newID, IPv4: ipv4})
	if err := wire.WriteAck(conn); err != nil {
		logWriteErr("join-announce ack", err)
	}
}

// remoteIPv4 extracts the IPv4 dotted-quad of conn's remote address,
// rejecting IPv6 and anything else that doesn't parse.
func remoteIPv4(conn net.Conn) (string, error) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return "", err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return "", errNotIPv4(host)
	}
	return ip.To4().String(), nil
}

type notIPv4Error string

func (e notIPv4Error) Error() string { return "address " + string(e) + " is not IPv4" }

func errNotIPv4(host string) error { return notIPv4Error(host) }
