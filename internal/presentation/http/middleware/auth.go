package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trailmark-ai/trailmark-go/internal/application/services"
)

// AuthMiddleware guards endpoints with a bearer token. With disabled set
// (single-user local deployments) every request passes.
func AuthMiddleware(authService *services.AuthService, disabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if disabled {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
			return
		}

		if err := authService.ValidateToken(strings.TrimPrefix(header, "Bearer ")); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}
