// Package admin is a small read-only HTTP sidecar for operators: a
// health check for load balancers and readiness probes, and a debug
// endpoint listing known peers. It is intentionally outside the
// replicated core — the wire protocol in internal/wire and internal/cluster
// is the only place client reads, writes, and replication happen. This
// mirrors the single router.GET("/health", ...) this codebase has
// always exposed alongside the real protocol.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ringkv/internal/cluster"
)

// Router builds the admin sidecar's Gin router against a running node.
func Router(node *cluster.Node) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(Logger(node.SelfID), Recovery(node.SelfID))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"node_id":     node.SelfID,
			"status":      "ok",
			"known_peers": node.Nodes.Len(),
		})
	})

	router.GET("/debug/nodes", func(c *gin.Context) {
		peers := node.Nodes.Snapshot()
		out := make([]gin.H, 0, len(peers))
		for _, p := range peers {
			out = append(out, gin.H{"id": p.ID, "ipv4": p.IPv4})
		}
		c.JSON(http.StatusOK, gin.H{"nodes": out})
	})

	router.GET("/debug/stores", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"leader_keys": node.LeaderStore.Len(),
			"backup_keys": node.BackupStore.Len(),
		})
	})

	return router
}
