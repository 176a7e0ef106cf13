package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultMaxBodyBytes caps request bodies on the simulator API. Escrow
// payloads are tiny JSON documents, so 1 MB leaves ample headroom.
const DefaultMaxBodyBytes int64 = 1 << 20

// MaxBodySize wraps the request body in a size-limited reader. A body
// that exceeds maxBytes makes the handler's read fail and the request
// is rejected with 413 Payload Too Large.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
