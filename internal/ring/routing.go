package ring

import "sort"

// Leader returns the node responsible for key: the smallest id that is
// >= key, or — if every known id is smaller — the largest id in the
// ring (the wraparound case). peers must be non-empty; callers that
// might race a node joining/leaving mid-lookup should pass a Snapshot
// taken once, not re-read the list mid-computation.
func Leader(peers []PeerNode, key uint64) PeerNode {
	sorted := sortedByID(peers)

	for _, p := range sorted {
		if p.ID >= key {
			return p
		}
	}
	// no id >= key: ring wraps, ownership falls to the largest id.
	return sorted[len(sorted)-1]
}

// NeighborsNonWrapping returns the largest id strictly less than self
// and the smallest id strictly greater than self, each nil if no such
// peer exists. self is never returned. peers need not include self.
func NeighborsNonWrapping(selfID uint64, peers []PeerNode) (smaller, greater *PeerNode) {
	sorted := sortedByID(withoutSelf(selfID, peers))

	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].ID < selfID {
			p := sorted[i]
			smaller = &p
			break
		}
	}
	for i := range sorted {
		if sorted[i].ID > selfID {
			p := sorted[i]
			greater = &p
			break
		}
	}
	return smaller, greater
}

// NeighborsWrapping returns the two ring-neighbors used for backup
// placement: the largest id below self, wrapping to the ring's largest
// id if self is the smallest; and the smallest id above self, wrapping
// to the ring's smallest id if self is the largest. If both slots
// would resolve to the same single other node (a two-member ring,
// counting self), the second slot is nil rather than a duplicate.
func NeighborsWrapping(selfID uint64, peers []PeerNode) [2]*PeerNode {
	others := sortedByID(withoutSelf(selfID, peers))
	if len(others) == 0 {
		return [2]*PeerNode{nil, nil}
	}

	smaller, greater := NeighborsNonWrapping(selfID, peers)
	if smaller == nil {
		last := others[len(others)-1]
		smaller = &last
	}
	if greater == nil {
		first := others[0]
		greater = &first
	}

	if smaller.ID == greater.ID {
		return [2]*PeerNode{smaller, nil}
	}
	return [2]*PeerNode{smaller, greater}
}

func withoutSelf(selfID uint64, peers []PeerNode) []PeerNode {
	out := make([]PeerNode, 0, len(peers))
	for _, p := range peers {
		if p.ID != selfID {
			out = append(out, p)
		}
	}
	return out
}

func sortedByID(peers []PeerNode) []PeerNode {
	out := make([]PeerNode, len(peers))
	copy(out, peers)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
