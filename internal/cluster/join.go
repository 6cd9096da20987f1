package cluster

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"

	"ringkv/internal/ring"
	"ringkv/internal/wire"
)

// JoinResult is what the join procedure hands back to the dispatcher
// startup so it can wire the rest of the node.
type JoinResult struct {
	SelfID     uint64
	Nodes      *ring.NodeList
	LeaderData map[uint64][]byte
	BackupData map[uint64][]byte
}

// Join runs the bootstrap procedure (§4.8). With an empty bootstrap
// address it starts an empty ring with a random id; otherwise it
// fetches the node list, claims a range of keys from its new
// neighbors, pulls backup seed data, and announces itself to every
// known peer.
func Join(bootstrapHost string) (JoinResult, error) {
	selfID := randomID()

	if bootstrapHost == "" {
		nodes := ring.NewNodeList()
		nodes.Add(ring.PeerNode{ID: selfID, IPv4: "127.0.0.1"})
		return JoinResult{
			SelfID:     selfID,
			Nodes:      nodes,
			LeaderData: map[uint64][]byte{},
			BackupData: map[uint64][]byte{},
		}, nil
	}

	bootstrapAddr := clusterAddr(bootstrapHost)
	peers, err := requestNodeList(bootstrapAddr, bootstrapHost)
	if err != nil {
		return JoinResult{}, fmt.Errorf("join: fetch node list from %s: %w", bootstrapHost, err)
	}

	smaller, greater := ring.NeighborsNonWrapping(selfID, peers)
	leaderData, err := requestOwnedRange(selfID, smaller, greater)
	if err != nil {
		return JoinResult{}, fmt.Errorf("join: request owned range: %w", err)
	}

	wrapping := ring.NeighborsWrapping(selfID, peers)
	backupData := requestBackupSeed(wrapping)

	announceToAll(peers, selfID)

	nodes := ring.NewNodeList()
	for _, p := range peers {
		nodes.Add(p)
	}
	nodes.Add(ring.PeerNode{ID: selfID, IPv4: "127.0.0.1"})

	return JoinResult{
		SelfID:     selfID,
		Nodes:      nodes,
		LeaderData: leaderData,
		BackupData: backupData,
	}, nil
}

// randomID picks a uniformly random 64-bit node id. Collisions are an
// accepted risk given the size of the id space (§4.8 step 2).
func randomID() uint64 {
	return rand.Uint64()
}

// requestNodeList sends op 10 to the bootstrap node and substitutes the
// bootstrap's real address for any entry whose encoded ipv4 is
// 127.0.0.1, so the joiner never treats the bootstrap itself as
// loopback.
func requestNodeList(bootstrapAddr, bootstrapHost string) ([]ring.PeerNode, error) {
	f, err := sendAndAwait(bootstrapAddr, wire.OpNodeList, nil)
	if err != nil {
		return nil, err
	}
	peers, err := DecodeNodeList(f.Payload)
	if err != nil {
		return nil, err
	}
	for i := range peers {
		if peers[i].IPv4 == "127.0.0.1" {
			peers[i].IPv4 = bootstrapHost
		}
	}
	return peers, nil
}

// requestOwnedRange claims this node's partition from whichever
// neighbor currently owns it via op 11 (range transfer-out). Per
// §4.8 step 3: prefer the greater neighbor requesting
// (smaller.id, self]; failing that, the smaller neighbor requesting
// (smaller.id, u64::MAX]; if there is no smaller neighbor either,
// request [0, self] from the greater neighbor.
func requestOwnedRange(selfID uint64, smaller, greater *ring.PeerNode) (map[uint64][]byte, error) {
	switch {
	case greater != nil:
		lower := uint64(0)
		if smaller != nil {
			lower = smaller.ID + 1
		}
		return transferOut(greater.IPv4, lower, selfID)
	case smaller != nil:
		return transferOut(smaller.IPv4, smaller.ID+1, math.MaxUint64)
	default:
		// Sole existing node; nothing to claim from. The ring was
		// empty before us in all but name.
		return map[uint64][]byte{}, nil
	}
}

func transferOut(ipv4 string, lower, upper uint64) (map[uint64][]byte, error) {
	payload := wire.PutUint64(nil, lower)
	payload = wire.PutUint64(payload, upper)

	f, err := sendAndAwait(clusterAddr(ipv4), wire.OpTransferOut, payload)
	if err != nil {
		return nil, err
	}
	entries, err := wire.DecodeKVEntries(f.Payload)
	if err != nil {
		return nil, err
	}
	return entriesToMap(entries), nil
}

// requestBackupSeed fetches a full leader-partition dump (op 12) from
// each wrapping neighbor, merging both into this node's initial backup
// data. Failures are logged and treated as an empty contribution — a
// brand new node missing one backup seed is recoverable the same way
// any other backup gap is.
func requestBackupSeed(wrapping [2]*ring.PeerNode) map[uint64][]byte {
	merged := make(map[uint64][]byte)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, n := range wrapping {
		if n == nil {
			continue
		}
		wg.Add(1)
		go func(n ring.PeerNode) {
			defer wg.Done()
			f, err := sendAndAwait(clusterAddr(n.IPv4), wire.OpBackupDump, nil)
			if err != nil {
				log.Printf("join: backup dump from %d: %v", n.ID, err)
				return
			}
			entries, err := wire.DecodeKVEntries(f.Payload)
			if err != nil {
				log.Printf("join: decode backup dump from %d: %v", n.ID, err)
				return
			}
			mu.Lock()
			for _, e := range entries {
				merged[e.Key] = e.Value
			}
			mu.Unlock()
		}(*n)
	}
	wg.Wait()
	return merged
}

// announceToAll sends op 13 to every known peer in parallel (§4.8
// step 5).
func announceToAll(peers []ring.PeerNode, selfID uint64) {
	payload := wire.PutUint64(nil, selfID)
	var wg sync.WaitGroup
	for _, p := range peers {
		wg.Add(1)
		go func(p ring.PeerNode) {
			defer wg.Done()
			f, err := sendAndAwait(clusterAddr(p.IPv4), wire.OpJoinAnnounce, payload)
			if err != nil {
				log.Printf("join: announce to %d: %v", p.ID, err)
				return
			}
			if err := expectAck(f); err != nil {
				log.Printf("join: %d did not ack announcement: %v", p.ID, err)
			}
		}(p)
	}
	wg.Wait()
}
