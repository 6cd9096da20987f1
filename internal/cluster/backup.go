package cluster

import (
	"log"
	"net"

	"ringkv/internal/store"
	"ringkv/internal/wire"
)

// backupRequest is one unit of work queued to the Backup block's
// serial processing goroutine.
type backupRequest struct {
	conn    net.Conn
	opcode  byte
	payload []byte
}

// BackupBlock owns this node's two replicated partitions. Per §5 its
// handlers are short and touch only BackupBlock's own state, so unlike
// Leader it processes every request serially off a single channel
// rather than spawning a goroutine per connection.
type BackupBlock struct {
	store *store.BackupStore
	reqs  chan backupRequest
}

// NewBackupBlock creates a BackupBlock and starts its serial worker.
func NewBackupBlock(s *store.BackupStore) *BackupBlock {
	b := &BackupBlock{store: s, reqs: make(chan backupRequest, 64)}
	go b.run()
	return b
}

// Submit queues one request for serial processing. Called by the
// dispatcher for inbound op 20/21/32.
func (b *BackupBlock) Submit(conn net.Conn, opcode byte, payload []byte) {
	b.reqs <- backupRequest{conn: conn, opcode: opcode, payload: payload}
}

func (b *BackupBlock) run() {
	for req := range b.reqs {
		switch req.opcode {
		case wire.OpBackupWrite:
			b.handleWrite(req.conn, req.payload)
		case wire.OpBackupBulkWrite:
			b.handleBulkWrite(req.conn, req.payload)
		case wire.OpBackupTransferDrain:
			b.handleTransferDrain(req.conn, req.payload)
		default:
			log.Printf("backup: unexpected opcode %d queued", req.opcode)
		}
		req.conn.Close()
	}
}

// handleWrite serves op 20: body [key: u64][value: bytes]. Insert;
// respond "ok".
func (b *BackupBlock) handleWrite(conn net.Conn, payload []byte) {
	if len(payload) < 8 {
		logMalformed(conn, "backup-write", len(payload))
		return
	}
	key := wire.Uint64At(payload, 0)
	value := payload[8:]
	b.store.Put(key, value)
	if err := wire.WriteAck(conn); err != nil {
		logWriteErr("backup-write ack", err)
	}
}

// handleBulkWrite serves op 21: body is a sequence of [key][len][value]
// triples. Insert each; respond "ok".
func (b *BackupBlock) handleBulkWrite(conn net.Conn, payload []byte) {
	entries, err := wire.DecodeKVEntries(payload)
	if err != nil {
		log.Printf("backup: bulk write decode: %v", err)
		return
	}
	b.store.BulkInsert(entriesToMap(entries))
	if err := wire.WriteAck(conn); err != nil {
		logWriteErr("bulk write ack", err)
	}
}

// handleTransferDrain serves op 32: select keys in [lower, upper], emit
// [key][len][value]..., remove each, respond op-0 wrapping the body.
// Used during fault-tolerance promotion.
func (b *BackupBlock) handleTransferDrain(conn net.Conn, payload []byte) {
	if len(payload) != 16 {
		logMalformed(conn, "backup-transfer-drain", len(payload))
		return
	}
	lower := wire.Uint64At(payload, 0)
	upper := wire.Uint64At(payload, 8)

	drained := b.store.RangeDrain(lower, upper)
	body := encodeEntries(drained)
	if err := wire.WriteResponse(conn, body); err != nil {
		logWriteErr("backup-transfer-drain response", err)
	}
}

// RangeDrain exposes the same operation as handleTransferDrain for the
// in-process fault-tolerance promotion path (§9: a reimplementation may
// collapse the loopback TCP hop into a direct call as long as the
// semantics are unchanged).
func (b *BackupBlock) RangeDrain(lower, upper uint64) map[uint64][]byte {
	return b.store.RangeDrain(lower, upper)
}

// BulkInsert exposes the bulk-write operation for in-process callers,
// same rationale as RangeDrain.
func (b *BackupBlock) BulkInsert(entries map[uint64][]byte) {
	b.store.BulkInsert(entries)
}
