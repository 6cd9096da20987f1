package admin

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger is a Gin middleware that logs every sidecar request tagged with
// this node's ring id, so operator logs from a multi-node ring can be
// told apart without also grepping the process's listen address.
func Logger(selfID uint64) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("node %d: [%s] %s %s | %d | %s",
			selfID,
			c.Request.Method,
			c.Request.URL.Path,
			c.ClientIP(),
			c.Writer.Status(),
			time.Since(start),
		)
	}
}

// Recovery recovers a panic in a later handler, logs it tagged with this
// node's ring id for the same reason Logger does, and answers 500 with
// a JSON error body. It does not use Gin's own gin.Recovery.
func Recovery(selfID uint64) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("node %d: PANIC recovered: %v", selfID, err)
				c.AbortWithStatusJSON(500, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
