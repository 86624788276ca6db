package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/performance"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/persistence/database"
)

// HealthHandlers contains liveness and metrics handlers.
type HealthHandlers struct {
	db          *database.DB
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewHealthHandlers creates health handlers with injected dependencies
func NewHealthHandlers(db *database.DB, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *HealthHandlers {
	return &HealthHandlers{db: db, logger: logger, perfTracker: perfTracker}
}

// GetHealth handles GET /health - liveness plus a database ping.
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		h.logger.System().Error("Health check database ping failed", "error", err.Error())
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetMetrics handles GET /api/v1/metrics - aggregate operation stats and
// recent performance alerts.
func (h *HealthHandlers) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":  h.perfTracker.GetOverallStats(),
		"alerts": h.perfTracker.GetAlerts(),
	})
}
