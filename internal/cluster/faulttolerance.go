package cluster

import (
	"log"
	"math"
	"net"
	"sort"

	"ringkv/internal/ring"
	"ringkv/internal/wire"
)

// FaultToleranceBlock detects and propagates a dead peer, and drives
// the local promotion of a crashed leader's backed-up partition into
// this node's own leader store, followed by placing a fresh backup
// replica downstream. The cross-block calls §9 describes as loopback
// TCP hops to 127.0.0.1 are implemented here as direct method calls on
// the local Leader and Backup blocks instead: the design notes
// explicitly permit collapsing them as long as the frame semantics
// stay identical, and a direct call cannot deadlock against this same
// node's own listener the way a loopback dial could.
type FaultToleranceBlock struct {
	nodes  *ring.NodeList
	selfID uint64
	leader *LeaderBlock
	backup *BackupBlock
}

// NewFaultToleranceBlock wires a FaultToleranceBlock. SetBlocks must be
// called once Leader and Backup exist, since all three blocks are
// constructed together and refer to each other.
func NewFaultToleranceBlock(nodes *ring.NodeList, selfID uint64) *FaultToleranceBlock {
	return &FaultToleranceBlock{nodes: nodes, selfID: selfID}
}

// SetBlocks completes the wiring cycle between Leader, Backup, and
// FaultTolerance.
func (ft *FaultToleranceBlock) SetBlocks(leader *LeaderBlock, backup *BackupBlock) {
	ft.leader = leader
	ft.backup = backup
}

// PeerDown runs the outbound "peer-down" path: given a suspected-dead
// id, find D's non-wrapping neighbors over a snapshot, pick a
// recipient, and notify it with op 30. Used by Replicator on a dial
// failure and by Client-proxy on a leader-connect failure.
func (ft *FaultToleranceBlock) PeerDown(deadID uint64) {
	smaller, greater := ring.NeighborsNonWrapping(deadID, ft.nodes.Snapshot())

	var recipient *ring.PeerNode
	switch {
	case greater != nil:
		recipient = greater
	case smaller != nil:
		recipient = smaller
	default:
		return // ring of 1 (deadID was the only other node); nothing to notify
	}

	payload := wire.PutUint64(nil, deadID)
	f, err := sendAndAwait(clusterAddr(recipient.IPv4), wire.OpNeighborDown, payload)
	if err != nil {
		log.Printf("fault-tolerance: notify %d of %d down: %v", recipient.ID, deadID, err)
		return
	}
	if err := expectAck(f); err != nil {
		log.Printf("fault-tolerance: %d did not ack neighbor-down for %d: %v", recipient.ID, deadID, err)
	}
}

// HandleNeighborDown serves op 30: length 13, body D. Executed in
// order — deannounce, promote, place new backup, ack — because
// promotion and new-backup placement both need D still present in the
// node list to compute neighbor ranges correctly.
func (ft *FaultToleranceBlock) HandleNeighborDown(conn net.Conn, payload []byte) {
	if len(payload) != 8 {
		logMalformed(conn, "neighbor-down", len(payload))
		return
	}
	deadID := wire.Uint64At(payload, 0)
	snapshot := ft.nodes.Snapshot()

	ft.deannouncePeer(deadID, snapshot)
	ft.promoteBackupToLeader(deadID, snapshot)
	ft.placeNewBackup(deadID, snapshot)
	ft.nodes.Remove(deadID)

	if err := wire.WriteAck(conn); err != nil {
		logWriteErr("neighbor-down ack", err)
	}
}

// deannouncePeer broadcasts op 31 to every peer except D and this node
// itself, telling each to drop D from its own node list (this node's
// own list is updated directly by HandleNeighborDown). Individual failures are logged,
// not fatal — a peer that never gets the message will eventually learn
// of D's removal through its own peer-down detection.
func (ft *FaultToleranceBlock) deannouncePeer(deadID uint64, snapshot []ring.PeerNode) {
	payload := wire.PutUint64(nil, deadID)
	for _, p := range snapshot {
		if p.ID == deadID || p.ID == ft.selfID {
			continue
		}
		f, err := sendAndAwait(clusterAddr(p.IPv4), wire.OpDeannounce, payload)
		if err != nil {
			log.Printf("fault-tolerance: deannounce %d to %d: %v", deadID, p.ID, err)
			continue
		}
		if err := expectAck(f); err != nil {
			log.Printf("fault-tolerance: %d did not ack deannounce of %d: %v", p.ID, deadID, err)
		}
	}
}

// promoteBackupToLeader computes the range (prev_id, D] that D used to
// own and moves it from this node's backup store into its leader
// store.
func (ft *FaultToleranceBlock) promoteBackupToLeader(deadID uint64, snapshot []ring.PeerNode) {
	lower, upper := deadRange(deadID, snapshot)
	promoted := ft.backup.RangeDrain(lower, upper)
	ft.leader.store.BulkInsert(promoted)
}

// placeNewBackup determines the node that should now hold a copy of
// this node's own leader partition on D's side, and pushes this node's
// full leader store to it. If D was the ring-max, the new backup is
// the ring-min; otherwise it's D's smaller wrapping neighbor in the
// post-D ring.
func (ft *FaultToleranceBlock) placeNewBackup(deadID uint64, snapshot []ring.PeerNode) {
	_, deadGreater := ring.NeighborsNonWrapping(deadID, snapshot)

	postD := removePeer(snapshot, deadID)
	var target *ring.PeerNode
	if deadGreater == nil {
		// D was the ring-max: new backup is the ring-min.
		sorted := sortedPeers(postD)
		if len(sorted) == 0 {
			return
		}
		target = &sorted[0]
	} else {
		// D's smaller wrapping neighbor in the post-D ring: wrapping
		// (not non-wrapping) because D may have been the ring-minimum,
		// in which case the slot wraps to the post-D ring's maximum.
		wrapping := ring.NeighborsWrapping(deadID, postD)
		target = wrapping[0]
	}
	if target == nil || target.ID == ft.selfID {
		return
	}

	pushLeaderStoreTo(ft.leader, *target)
}

// HandleDeannounce serves op 31: length 13, body D. Remove D from the
// node list. Before removal, if D was this node's wrapping-greater
// neighbor and D was not the ring-max, push this node's full leader
// data to D's successor so this node's partition keeps two replicas;
// symmetric case when D was the wrapping-smaller neighbor and was the
// ring-max.
func (ft *FaultToleranceBlock) HandleDeannounce(conn net.Conn, payload []byte) {
	if len(payload) != 8 {
		logMalformed(conn, "deannounce", len(payload))
		return
	}
	deadID := wire.Uint64At(payload, 0)
	snapshot := ft.nodes.Snapshot()

	wrapping := ring.NeighborsWrapping(ft.selfID, snapshot)
	smallerWrap, greaterWrap := wrapping[0], wrapping[1]
	_, deadGreater := ring.NeighborsNonWrapping(deadID, snapshot)
	deadWasRingMax := deadGreater == nil

	switch {
	case greaterWrap != nil && greaterWrap.ID == deadID && !deadWasRingMax:
		ft.pushToSuccessorOfDead(deadID, snapshot)
	case smallerWrap != nil && smallerWrap.ID == deadID && deadWasRingMax:
		ft.pushToSuccessorOfDead(deadID, snapshot)
	}

	ft.nodes.Remove(deadID)
	if err := wire.WriteAck(conn); err != nil {
		logWriteErr("deannounce ack", err)
	}
}

// pushToSuccessorOfDead sends this node's full leader store to the
// node that inherits D's old position in the ring (D's non-wrapping
// greater neighbor if any, else the ring-min).
func (ft *FaultToleranceBlock) pushToSuccessorOfDead(deadID uint64, snapshot []ring.PeerNode) {
	postD := removePeer(snapshot, deadID)
	_, successor := ring.NeighborsNonWrapping(deadID, snapshot)
	if successor == nil {
		sorted := sortedPeers(postD)
		if len(sorted) == 0 {
			return
		}
		successor = &sorted[0]
	}
	if successor.ID == ft.selfID {
		return
	}
	pushLeaderStoreTo(ft.leader, *successor)
}

// pushLeaderStoreTo dumps l's full leader partition and bulk-writes it
// to target via op 21.
func pushLeaderStoreTo(l *LeaderBlock, target ring.PeerNode) {
	dump := l.store.Dump()
	body := encodeEntries(dump)
	f, err := sendAndAwait(clusterAddr(target.IPv4), wire.OpBackupBulkWrite, body)
	if err != nil {
		log.Printf("fault-tolerance: push leader store to %d: %v", target.ID, err)
		return
	}
	if err := expectAck(f); err != nil {
		log.Printf("fault-tolerance: %d did not ack bulk backup write: %v", target.ID, err)
	}
}

// deadRange computes the (prev_id, D] range D used to own: prev_id is
// D's smaller non-wrapping neighbor's id, or 0 if none; the upper
// bound is D's id, or math.MaxUint64 if D had no greater non-wrapping
// neighbor (D was the ring-maximum).
func deadRange(deadID uint64, snapshot []ring.PeerNode) (lower, upper uint64) {
	smaller, greater := ring.NeighborsNonWrapping(deadID, snapshot)
	if smaller == nil {
		lower = 0
	} else {
		lower = smaller.ID + 1 // partition is exclusive of prev_id itself
	}
	if greater == nil {
		upper = math.MaxUint64
	} else {
		upper = deadID
	}
	return lower, upper
}

func removePeer(peers []ring.PeerNode, id uint64) []ring.PeerNode {
	out := make([]ring.PeerNode, 0, len(peers))
	for _, p := range peers {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

func sortedPeers(peers []ring.PeerNode) []ring.PeerNode {
	out := make([]ring.PeerNode, len(peers))
	copy(out, peers)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
