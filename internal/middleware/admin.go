package middleware

import (
	"net/http"

	"vipclub/internal/models"

	"github.com/gin-gonic/gin"
)

type ProfileReader interface {
	GetByID(id string) (*models.Profile, error)
}

// AdminRequired checks profiles.is_admin for the authenticated user.
func AdminRequired(profiles ProfileReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := profiles.GetByID(GetUserID(c))
		if err != nil || !p.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
