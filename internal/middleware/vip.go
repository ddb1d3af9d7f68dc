package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type VIPChecker interface {
	IsVIP(userID string) (bool, error)
}

// RequireVIP lets through only users with an active entitlement.
func RequireVIP(checker VIPChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := checker.IsVIP(GetUserID(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to check VIP status"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "VIP access required"})
			return
		}
		c.Next()
	}
}
