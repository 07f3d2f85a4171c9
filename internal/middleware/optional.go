package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/inkwell-funnel/backend/internal/auth"
)

// OptionalJWT sets user claims in context when a valid bearer token is
// present but lets anonymous requests through. Used on checkout, where
// guests buy without an account and logged-in buyers get the purchase
// linked immediately.
func OptionalJWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Next()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			c.Next()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}
