// cmd/server is the main entrypoint for a ringkv node.
//
// A node is entirely configured by flags and the single DS_KNOWN_NODE
// environment variable — there is no peer list to hand it, since
// membership is discovered through the join procedure (internal/cluster,
// join.go) rather than passed on the command line.
//
// Example — bootstrap a fresh ring:
//
//	./ringkv-server
//
// Example — join an existing ring:
//
//	DS_KNOWN_NODE=10.0.0.5 ./ringkv-server --admin-addr :8081
package main

import (
	"log"

	"ringkv/internal/admin"
	"ringkv/internal/cluster"
	"ringkv/internal/config"
)

func main() {
	cfg := config.Parse()

	node, err := cluster.StartNode(cfg)
	if err != nil {
		log.Fatalf("start node: %v", err)
	}

	if cfg.AdminAddr != "" {
		go func() {
			router := admin.Router(node)
			log.Printf("admin sidecar listening on %s", cfg.AdminAddr)
			if err := router.Run(cfg.AdminAddr); err != nil {
				log.Printf("admin sidecar stopped: %v", err)
			}
		}()
	}

	if err := node.Listen(); err != nil {
		log.Fatalf("cluster listener: %v", err)
	}
}
