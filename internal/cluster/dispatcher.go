package cluster

import (
	"log"
	"net"

	"ringkv/internal/wire"
)

// Dispatcher accepts inbound connections and routes the one framed
// message each carries to the block its opcode belongs to. The
// connection itself is handed off to the block's handler, which owns
// it for the rest of its lifetime — multi-message handshakes (write,
// client-write) keep reading and writing on the same connection deep
// inside their own handler.
type Dispatcher struct {
	leader         *LeaderBlock
	backup         *BackupBlock
	peer           *PeerBlock
	faultTolerance *FaultToleranceBlock
	clientProxy    *ClientProxyBlock
}

// NewDispatcher wires a Dispatcher against the five blocks it routes
// to.
func NewDispatcher(leader *LeaderBlock, backup *BackupBlock, peer *PeerBlock, ft *FaultToleranceBlock, cp *ClientProxyBlock) *Dispatcher {
	return &Dispatcher{leader: leader, backup: backup, peer: peer, faultTolerance: ft, clientProxy: cp}
}

// Serve accepts connections on ln until it is closed or returns an
// error. Each connection gets its own goroutine so Leader, Client-proxy,
// and Fault-tolerance requests run concurrently (§5); Peer and Backup
// requests are hand off to their own serial channel inside the same
// goroutine, which returns immediately after queuing.
func (d *Dispatcher) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go d.handleConn(conn)
	}
}

// handleConn reads the one frame a new connection carries and routes
// by opcode. Unknown opcodes are logged and the connection dropped.
func (d *Dispatcher) handleConn(conn net.Conn) {
	f, err := wire.ReadFrame(conn)
	if err != nil {
		log.Printf("dispatcher: read frame from %s: %v", conn.RemoteAddr(), err)
		conn.Close()
		return
	}

	switch f.Opcode {
	case wire.OpRead:
		defer conn.Close()
		d.leader.HandleRead(conn, f.Payload)
	case wire.OpWriteStart:
		defer conn.Close()
		d.leader.HandleWriteStart(conn, f.Payload)
	case wire.OpTransferOut:
		defer conn.Close()
		d.leader.HandleTransferOut(conn, f.Payload)
	case wire.OpBackupDump:
		defer conn.Close()
		d.leader.HandleBackupDump(conn, f.Payload)
	case wire.OpLeaderBulkInsert:
		defer conn.Close()
		d.leader.HandleBulkInsert(conn, f.Payload)
	case wire.OpNodeList:
		d.peer.Submit(conn, f.Opcode, f.Payload)
	case wire.OpJoinAnnounce:
		d.peer.Submit(conn, f.Opcode, f.Payload)
	case wire.OpBackupWrite, wire.OpBackupBulkWrite, wire.OpBackupTransferDrain:
		d.backup.Submit(conn, f.Opcode, f.Payload)
	case wire.OpNeighborDown:
		defer conn.Close()
		d.faultTolerance.HandleNeighborDown(conn, f.Payload)
	case wire.OpDeannounce:
		defer conn.Close()
		d.faultTolerance.HandleDeannounce(conn, f.Payload)
	case wire.OpClientRead:
		defer conn.Close()
		d.clientProxy.HandleClientRead(conn, f.Payload)
	case wire.OpClientWrite:
		defer conn.Close()
		d.clientProxy.HandleClientWrite(conn, f.Payload)
	default:
		log.Printf("dispatcher: unknown opcode %d from %s, dropping connection", f.Opcode, conn.RemoteAddr())
		conn.Close()
	}
}
