package cluster

import (
	"fmt"
	"log"
	"net"

	"ringkv/internal/config"
	"ringkv/internal/ring"
	"ringkv/internal/store"
)

// Node aggregates one running node's blocks, stores, and shared node
// list, and owns the accept loop that feeds the Dispatcher.
type Node struct {
	SelfID uint64
	Nodes  *ring.NodeList

	LeaderStore *store.LeaderStore
	BackupStore *store.BackupStore

	Leader         *LeaderBlock
	Backup         *BackupBlock
	Peer           *PeerBlock
	FaultTolerance *FaultToleranceBlock
	ClientProxy    *ClientProxyBlock

	dispatcher *Dispatcher
}

// StartNode runs the join procedure, wires every block together, and
// returns a Node ready to Listen. cfg.KnownNode may be empty to start a
// fresh, single-node ring.
func StartNode(cfg config.Config) (*Node, error) {
	result, err := Join(cfg.KnownNode)
	if err != nil {
		return nil, fmt.Errorf("start node: %w", err)
	}

	leaderStore := store.NewLeaderStore()
	leaderStore.BulkInsert(result.LeaderData)
	backupStore := store.NewBackupStore()
	backupStore.BulkInsert(result.BackupData)

	ft := NewFaultToleranceBlock(result.Nodes, result.SelfID)
	replicator := NewReplicator(result.Nodes, result.SelfID, ft)
	leader := NewLeaderBlock(leaderStore, result.Nodes, result.SelfID, replicator)
	backup := NewBackupBlock(backupStore)
	ft.SetBlocks(leader, backup)

	peer := NewPeerBlock(result.Nodes, result.SelfID)
	clientProxy := NewClientProxyBlock(result.Nodes, ft)

	n := &Node{
		SelfID:         result.SelfID,
		Nodes:          result.Nodes,
		LeaderStore:    leaderStore,
		BackupStore:    backupStore,
		Leader:         leader,
		Backup:         backup,
		Peer:           peer,
		FaultTolerance: ft,
		ClientProxy:    clientProxy,
		dispatcher:     NewDispatcher(leader, backup, peer, ft, clientProxy),
	}
	return n, nil
}

// Listen opens the fixed cluster TCP port and serves connections until
// the listener is closed or the process exits.
func (n *Node) Listen() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", config.ListenPort))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", config.ListenPort, err)
	}
	log.Printf("node %d listening on :%d (%d known peers)", n.SelfID, config.ListenPort, n.Nodes.Len())
	return n.dispatcher.Serve(ln)
}
