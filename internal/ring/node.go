// Package ring implements consistent-hash-free ring partitioning: who
// owns a key, and who a node's replication neighbors are.
//
// Big idea:
//
// Other rings (see the hash-ring variant this package replaces) place
// virtual copies of each node at hashed positions so that ownership
// spreads evenly. This ring is simpler: a node's id IS its position.
// A key is itself a u64, so it needs no hashing either — it is already
// a point on the same ring the nodes live on. The tradeoff is coarser
// load balance in exchange for a much smaller, easier to reason about
// system: exactly N ranges for N nodes, the boundaries movable only by
// join/leave.
//
// Why still call it a ring?
//
// Because the same wraparound idea applies: the key space is
// 0..u64::MAX treated as a circle, and a node owns the half-open range
// back to its predecessor. At the ends, the lowest-id node owns every
// key from 0 up to its own id, and the highest-id node also owns the
// wraparound segment above the highest id.
package ring

import "sync"

// PeerNode is one member of the cluster. Equality is by ID — two
// PeerNode values with different IPv4 addresses but the same ID are
// the same peer (e.g. one copy read under loopback before substitution,
// one read after).
type PeerNode struct {
	ID   uint64
	IPv4 string
}

// NodeList is the process-wide, mutex-protected set of known peers.
//
// Invariants (spec.md §3):
//   - every live node appears at most once, keyed by ID
//   - this node's own entry, if present, carries "127.0.0.1"
//   - during a peer-down handoff the crashed id stays in the list
//     until the deannouncement handler removes it
//
// Callers must never hold the lock across I/O. Every method here that
// needs to make a network call first takes a Snapshot and releases the
// lock before dialing anything.
type NodeList struct {
	mu    sync.Mutex
	nodes map[uint64]PeerNode
}

// NewNodeList creates an empty node list.
func NewNodeList() *NodeList {
	return &NodeList{nodes: make(map[uint64]PeerNode)}
}

// Add inserts or overwrites a peer by ID. Used on join acceptance and
// at local startup to register self.
func (nl *NodeList) Add(node PeerNode) {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	nl.nodes[node.ID] = node
}

// Remove deletes a peer by ID. Used by the deannouncement handler
// (op 31), and by the neighbor-down handler (op 30) for this node's own
// list once promotion and backup placement are done — see spec.md §4.6
// and §9 on why removal must wait until after promotion/backup-placement
// has read the crashed node's position.
func (nl *NodeList) Remove(id uint64) {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	delete(nl.nodes, id)
}

// Snapshot returns a point-in-time copy of all known peers. This is
// the only way callers should read the list before doing network I/O.
func (nl *NodeList) Snapshot() []PeerNode {
	nl.mu.Lock()
	defer nl.mu.Unlock()

	out := make([]PeerNode, 0, len(nl.nodes))
	for _, n := range nl.nodes {
		out = append(out, n)
	}
	return out
}

// Get returns the peer with the given id, if known.
func (nl *NodeList) Get(id uint64) (PeerNode, bool) {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	n, ok := nl.nodes[id]
	return n, ok
}

// Len reports how many peers are currently known.
func (nl *NodeList) Len() int {
	nl.mu.Lock()
	defer nl.mu.Unlock()
	return len(nl.nodes)
}
