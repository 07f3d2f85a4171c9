package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/inkwell-funnel/backend/pkg/response"
)

// HeaderInternalSecret carries the shared secret for internal-only endpoints
// (email scheduling trigger). These are called by trusted automation, not
// browsers.
const HeaderInternalSecret = "X-Internal-Secret"

// InternalSecret returns a middleware that rejects requests without the
// configured shared secret. An empty configured secret disables the
// endpoints entirely rather than leaving them open.
func InternalSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			response.Forbidden(c, "internal endpoints disabled")
			c.Abort()
			return
		}
		got := c.GetHeader(HeaderInternalSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			response.Unauthorized(c, "invalid internal secret")
			c.Abort()
			return
		}
		c.Next()
	}
}
