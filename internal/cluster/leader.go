package cluster

import (
	"log"
	"net"

	"ringkv/internal/ring"
	"ringkv/internal/store"
	"ringkv/internal/wire"
)

// LeaderBlock owns this node's primary partition: it serves reads and
// writes and drives replication to the two backup neighbors. Per §5 it
// spawns an independent goroutine per accepted connection, so several
// reads and writes are served in parallel; callers only ever touch
// leaderStore through its own mutex.
type LeaderBlock struct {
	store      *store.LeaderStore
	nodes      *ring.NodeList
	selfID     uint64
	replicator *Replicator
}

// NewLeaderBlock wires a LeaderBlock against its backing store, the
// shared node list, and the replicator that fans writes out to backups.
func NewLeaderBlock(s *store.LeaderStore, nodes *ring.NodeList, selfID uint64, replicator *Replicator) *LeaderBlock {
	return &LeaderBlock{store: s, nodes: nodes, selfID: selfID, replicator: replicator}
}

// HandleRead serves op 1: frame length must be 13 (8-byte key). Replies
// with the current value, or an empty body if absent. No side effects.
func (l *LeaderBlock) HandleRead(conn net.Conn, payload []byte) {
	if len(payload) != 8 {
		logMalformed(conn, "read", len(payload))
		return
	}
	key := wire.Uint64At(payload, 0)
	value, _ := l.store.Get(key)
	if err := wire.WriteResponse(conn, value); err != nil {
		logWriteErr("read response", err)
	}
}

// HandleWriteStart serves op 2, the first message of the three-step
// write handshake: the caller (client-proxy or, in tests, a direct
// client) has already sent the op-2 key frame by the time the
// dispatcher hands this connection off; HandleWriteStart reads the
// rest of the handshake itself because the remaining two messages
// arrive on the SAME connection.
func (l *LeaderBlock) HandleWriteStart(conn net.Conn, payload []byte) {
	if len(payload) != 8 {
		logMalformed(conn, "write-start", len(payload))
		return
	}
	key := wire.Uint64At(payload, 0)

	// Step 2: respond with the current value as the "permission" message.
	current, _ := l.store.Get(key)
	if err := wire.WriteResponse(conn, current); err != nil {
		logWriteErr("write permission", err)
		return
	}

	// Step 3: read the new value the caller submits in response.
	newValueFrame, err := wire.ReadFrame(conn)
	if err != nil {
		log.Printf("leader: read new value for key %d: %v", key, err)
		return
	}
	newValue := newValueFrame.Payload

	// Step 4: replicate (best-effort), then commit locally regardless
	// of replication outcome — see §9 "write still commits on backup
	// failure".
	if err := l.replicator.ReplicateWrite(key, newValue); err != nil {
		log.Printf("leader: replication for key %d degraded: %v", key, err)
	}
	l.store.Put(key, newValue)

	if err := wire.WriteAck(conn); err != nil {
		logWriteErr("write ack", err)
	}
}

// HandleTransferOut serves op 11: drains every key in [lower, upper]
// from the leader store and hands the bytes to the caller. Destructive —
// used only during join, when ownership of a range is moving to a
// freshly joined node.
func (l *LeaderBlock) HandleTransferOut(conn net.Conn, payload []byte) {
	if len(payload) != 16 {
		logMalformed(conn, "transfer-out", len(payload))
		return
	}
	lower := wire.Uint64At(payload, 0)
	upper := wire.Uint64At(payload, 8)

	drained := l.store.RangeDrain(lower, upper)
	body := encodeEntries(drained)
	if err := wire.WriteResponse(conn, body); err != nil {
		logWriteErr("transfer-out response", err)
	}
}

// HandleBackupDump serves op 12: a non-destructive full dump of this
// node's leader partition, used to seed a new backup replica.
func (l *LeaderBlock) HandleBackupDump(conn net.Conn, payload []byte) {
	body := encodeEntries(l.store.Dump())
	if err := wire.WriteResponse(conn, body); err != nil {
		logWriteErr("backup-dump response", err)
	}
}

// HandleBulkInsert serves op 33: insert every [key][len][value] triple
// in payload into the leader store, overwriting. Used by the
// fault-tolerance promotion path when this node absorbs a crashed
// leader's backed-up partition.
func (l *LeaderBlock) HandleBulkInsert(conn net.Conn, payload []byte) {
	entries, err := wire.DecodeKVEntries(payload)
	if err != nil {
		log.Printf("leader: bulk insert decode: %v", err)
		return
	}
	l.store.BulkInsert(entriesToMap(entries))
	if err := wire.WriteAck(conn); err != nil {
		logWriteErr("bulk insert ack", err)
	}
}

// encodeEntries serializes a drained/dumped map in the shared
// [key][len][value]... layout.
func encodeEntries(entries map[uint64][]byte) []byte {
	var body []byte
	for k, v := range entries {
		body = wire.EncodeKV(body, k, v)
	}
	return body
}

// entriesToMap turns decoded KV entries into the map shape the stores
// accept for bulk operations.
func entriesToMap(entries []wire.KVEntry) map[uint64][]byte {
	m := make(map[uint64][]byte, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Value
	}
	return m
}

func logMalformed(conn net.Conn, what string, n int) {
	log.Printf("leader: malformed %s frame from %s: payload length %d", what, conn.RemoteAddr(), n)
}

func logWriteErr(what string, err error) {
	log.Printf("leader: %s: %v", what, err)
}
