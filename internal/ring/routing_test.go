package ring

import "testing"

func threeNodeRing() []PeerNode {
	return []PeerNode{
		{ID: 5, IPv4: "10.0.0.5"},
		{ID: 12, IPv4: "10.0.0.12"},
		{ID: 25, IPv4: "10.0.0.25"},
	}
}

func TestLeaderNodeSelection(t *testing.T) {
	peers := threeNodeRing()

	cases := []struct {
		key  uint64
		want uint64
	}{
		{3, 5},
		{5, 5},
		{6, 12},
		{24, 25},
		{25, 25},
		{26, 25}, // wraps: no id >= 26, ownership falls to the largest id
	}

	for _, c := range cases {
		got := Leader(peers, c.key)
		if got.ID != c.want {
			t.Errorf("Leader(%d) = %d, want %d", c.key, got.ID, c.want)
		}
	}
}

func TestNeighborsNonWrappingStrictInequalities(t *testing.T) {
	peers := threeNodeRing()

	smaller, greater := NeighborsNonWrapping(12, peers)
	if smaller == nil || smaller.ID != 5 {
		t.Fatalf("smaller = %v, want id 5", smaller)
	}
	if greater == nil || greater.ID != 25 {
		t.Fatalf("greater = %v, want id 25", greater)
	}

	// the smallest id has no smaller non-wrapping neighbor
	smaller, greater = NeighborsNonWrapping(5, peers)
	if smaller != nil {
		t.Fatalf("smaller = %v, want nil for ring minimum", smaller)
	}
	if greater == nil || greater.ID != 12 {
		t.Fatalf("greater = %v, want id 12", greater)
	}

	// the largest id has no greater non-wrapping neighbor
	smaller, greater = NeighborsNonWrapping(25, peers)
	if smaller == nil || smaller.ID != 12 {
		t.Fatalf("smaller = %v, want id 12", smaller)
	}
	if greater != nil {
		t.Fatalf("greater = %v, want nil for ring maximum", greater)
	}
}

func TestNeighborsWrappingFourNode(t *testing.T) {
	peers := []PeerNode{
		{ID: 5}, {ID: 12}, {ID: 25}, {ID: 40},
	}

	got := NeighborsWrapping(25, peers)
	if got[0] == nil || got[0].ID != 12 {
		t.Fatalf("smaller slot = %v, want id 12", got[0])
	}
	if got[1] == nil || got[1].ID != 40 {
		t.Fatalf("greater slot = %v, want id 40", got[1])
	}

	// the ring minimum wraps its smaller slot to the ring maximum
	got = NeighborsWrapping(5, peers)
	if got[0] == nil || got[0].ID != 40 {
		t.Fatalf("smaller slot (wrapped) = %v, want id 40", got[0])
	}
	if got[1] == nil || got[1].ID != 12 {
		t.Fatalf("greater slot = %v, want id 12", got[1])
	}

	// the ring maximum wraps its greater slot to the ring minimum
	got = NeighborsWrapping(40, peers)
	if got[0] == nil || got[0].ID != 25 {
		t.Fatalf("smaller slot = %v, want id 25", got[0])
	}
	if got[1] == nil || got[1].ID != 5 {
		t.Fatalf("greater slot (wrapped) = %v, want id 5", got[1])
	}
}

func TestNeighborsWrappingTwoNodeRingNoDuplicate(t *testing.T) {
	peers := []PeerNode{{ID: 10}, {ID: 30}}

	got := NeighborsWrapping(10, peers)
	if got[0] == nil || got[0].ID != 30 {
		t.Fatalf("slot 0 = %v, want id 30", got[0])
	}
	if got[1] != nil {
		t.Fatalf("slot 1 = %v, want nil (ring of two collapses to one neighbor)", got[1])
	}
}

func TestNeighborsWrappingSingleNodeRing(t *testing.T) {
	// self is the only member: no neighbors at all.
	got := NeighborsWrapping(10, []PeerNode{{ID: 10}})
	if got[0] != nil || got[1] != nil {
		t.Fatalf("got %v, want [nil, nil] for a ring of one", got)
	}
}

func TestNeighborsExcludeSelf(t *testing.T) {
	peers := threeNodeRing()
	got := NeighborsWrapping(12, peers)
	for _, n := range got {
		if n != nil && n.ID == 12 {
			t.Fatalf("neighbors included self: %v", got)
		}
	}
}
