package cluster

import (
	"errors"
	"log"

	"ringkv/internal/ring"
	"ringkv/internal/wire"
)

// Replicator propagates a leader's writes to its two wrapping-neighbor
// backups (§4.3). Per-slot failures are retried once after the
// fault-tolerance outbound peer-down path runs; a second failure for
// the same slot is abandoned and reported to the caller. This replaces
// the HTTP-quorum replicator this package used to have: there is no N,
// W, or R here, just two fixed backup slots.
type Replicator struct {
	nodes          *ring.NodeList
	selfID         uint64
	faultTolerance *FaultToleranceBlock
}

// NewReplicator wires a Replicator against the shared node list and
// the fault-tolerance block it calls into on a dial failure.
func NewReplicator(nodes *ring.NodeList, selfID uint64, ft *FaultToleranceBlock) *Replicator {
	return &Replicator{nodes: nodes, selfID: selfID, faultTolerance: ft}
}

// ErrBothReplicasUnreachable is returned when a write could not be
// replicated to at least one non-nil backup slot, even after that
// slot's single documented retry.
var ErrBothReplicasUnreachable = errors.New("replication: both replicas unreachable")

// ReplicateWrite sends key/value to both ring-neighbor backups over a
// snapshot of the node list, retrying each slot once against a freshly
// read neighbor if the first dial fails. A nil slot (ring too small)
// counts as success.
func (r *Replicator) ReplicateWrite(key uint64, value []byte) error {
	neighbors := ring.NeighborsWrapping(r.selfID, r.nodes.Snapshot())

	failed := 0
	for slot, n := range neighbors {
		if n == nil {
			continue
		}
		if err := r.replicateToSlot(slot, n, key, value); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return ErrBothReplicasUnreachable
	}
	return nil
}

// replicateToSlot sends one backup write, retrying once against a
// fresh snapshot if the first attempt fails to dial or ack.
func (r *Replicator) replicateToSlot(slot int, n *ring.PeerNode, key uint64, value []byte) error {
	if err := r.writeBackup(n.IPv4, key, value); err == nil {
		return nil
	}

	log.Printf("replication: neighbor %d unreachable for key %d, triggering peer-down and retrying once", n.ID, key)
	if r.faultTolerance != nil {
		r.faultTolerance.PeerDown(n.ID)
	}

	retryNeighbor := freshNeighborForSlot(r.nodes, r.selfID, n.ID, slot)
	if retryNeighbor == nil {
		return ErrBothReplicasUnreachable
	}
	if err := r.writeBackup(retryNeighbor.IPv4, key, value); err != nil {
		return ErrBothReplicasUnreachable
	}
	return nil
}

// freshNeighborForSlot re-reads the node list after a peer-down
// notification and returns whichever wrapping neighbor now occupies
// the slot previously held by downID, or nil if that slot collapsed or
// is still held by downID.
func freshNeighborForSlot(nodes *ring.NodeList, selfID, downID uint64, slot int) *ring.PeerNode {
	n := ring.NeighborsWrapping(selfID, nodes.Snapshot())[slot]
	if n == nil || n.ID == downID {
		return nil
	}
	return n
}

// writeBackup opens a fresh connection to ipv4 and sends op 20,
// expecting an ack.
func (r *Replicator) writeBackup(ipv4 string, key uint64, value []byte) error {
	payload := wire.PutUint64(nil, key)
	payload = append(payload, value...)

	f, err := sendAndAwait(clusterAddr(ipv4), wire.OpBackupWrite, payload)
	if err != nil {
		return err
	}
	return expectAck(f)
}
