package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trailmark-ai/trailmark-go/internal/application/services"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/performance"
	"github.com/trailmark-ai/trailmark-go/pkg/config"
)

// AuthHandlers contains token issuance handlers.
type AuthHandlers struct {
	authService *services.AuthService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(authService *services.AuthService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// PostToken handles POST /api/v1/auth/token - exchanges the shared secret
// for a bearer token.
func (h *AuthHandlers) PostToken(c *gin.Context) {
	marker := h.perfTracker.StartOperation("post_token_request")
	defer marker.Complete()

	var req struct {
		Secret string `json:"secret" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "secret required"})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(config.JWTSecret)) != 1 {
		h.logger.Auth().Error("Token request with wrong secret", "remoteAddr", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
		return
	}

	token, err := h.authService.GenerateToken()
	if err != nil {
		marker.SetError(err)
		h.logger.Auth().Error("Token generation failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"token": token})
}
