package cluster

import (
	"fmt"
	"net"

	"ringkv/internal/ring"
	"ringkv/internal/wire"
)

// nodeEntrySize is [id: 8 bytes][ipv4: 4 bytes].
const nodeEntrySize = 12

// EncodeNodeList serializes peers as [id: u64][ipv4: 4 bytes]
// concatenated, the wire layout for op 10 responses and the announced
// node list forwarded during join.
func EncodeNodeList(peers []ring.PeerNode) ([]byte, error) {
	body := make([]byte, 0, len(peers)*nodeEntrySize)
	for _, p := range peers {
		ip := net.ParseIP(p.IPv4)
		if ip == nil || ip.To4() == nil {
			return nil, fmt.Errorf("encode node list: %q is not an IPv4 address", p.IPv4)
		}
		body = wire.PutUint64(body, p.ID)
		body = append(body, ip.To4()...)
	}
	return body, nil
}

// DecodeNodeList parses the [id][ipv4]... layout produced by
// EncodeNodeList.
func DecodeNodeList(payload []byte) ([]ring.PeerNode, error) {
	if len(payload)%nodeEntrySize != 0 {
		return nil, fmt.Errorf("decode node list: length %d not a multiple of %d", len(payload), nodeEntrySize)
	}
	peers := make([]ring.PeerNode, 0, len(payload)/nodeEntrySize)
	for i := 0; i < len(payload); i += nodeEntrySize {
		id := wire.Uint64At(payload, i)
		ipBytes := payload[i+8 : i+12]
		ipv4 := net.IPv4(ipBytes[0], ipBytes[1], ipBytes[2], ipBytes[3]).String()
		peers = append(peers, ring.PeerNode{ID: id, IPv4: ipv4})
	}
	return peers, nil
}
