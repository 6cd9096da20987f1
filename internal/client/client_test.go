package client

import "testing"

func TestParseNodesRoundTrip(t *testing.T) {
	payload := []byte{
		0, 0, 0, 0, 0, 0, 0, 5, 10, 0, 0, 5,
		0, 0, 0, 0, 0, 0, 0, 12, 10, 0, 0, 12,
	}

	peers, err := ParseNodes(payload)
	if err != nil {
		t.Fatalf("ParseNodes failed: %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("got %d peers, want 2", len(peers))
	}
	if peers[0].ID != 5 || peers[0].IPv4 != "10.0.0.5" {
		t.Fatalf("peer 0 = %+v, want id=5 ipv4=10.0.0.5", peers[0])
	}
	if peers[1].ID != 12 || peers[1].IPv4 != "10.0.0.12" {
		t.Fatalf("peer 1 = %+v, want id=12 ipv4=10.0.0.12", peers[1])
	}
}

func TestParseNodesRejectsMisalignedPayload(t *testing.T) {
	if _, err := ParseNodes([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for payload not a multiple of entry size")
	}
}
