package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthHeader carries the shared secret on every request.
const AuthHeader = "X-Auth"

// requireAuth rejects requests whose shared-secret header is missing or
// wrong before any job operation runs.
func requireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(AuthHeader)
		if got == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": AuthHeader + " header is required"})
			return
		}
		if got != secret {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "invalid " + AuthHeader + " credentials"})
			return
		}
		c.Next()
	}
}
