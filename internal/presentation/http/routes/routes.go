// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/trailmark-ai/trailmark-go/internal/application/container"
	"github.com/trailmark-ai/trailmark-go/internal/presentation/http/handlers"
	"github.com/trailmark-ai/trailmark-go/internal/presentation/http/middleware"
	"github.com/trailmark-ai/trailmark-go/pkg/config"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.RequestIDMiddleware())

	// Initialize handlers
	historyHandlers := handlers.NewHistoryHandlers(
		container.IngestService,
		container.DerivationService,
		container.DispatchService,
		container.VisitRepo,
		container.AnalyzedRepo,
		container.Logger,
		container.PerfTracker,
	)
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger, container.PerfTracker)
	healthHandlers := handlers.NewHealthHandlers(container.DB, container.Logger, container.PerfTracker)

	r.GET("/health", healthHandlers.GetHealth)

	api := r.Group("/api/v1")
	{
		api.POST("/auth/token", authHandlers.PostToken)

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(container.AuthService, config.AuthDisabled))
		{
			protected.POST("/visits", historyHandlers.PostVisits)
			protected.GET("/history", historyHandlers.GetHistory)
			protected.GET("/sessions", historyHandlers.GetSessions)
			protected.POST("/analyze", historyHandlers.PostAnalyze)
			protected.GET("/stats", historyHandlers.GetStats)
			protected.GET("/metrics", healthHandlers.GetMetrics)
		}
	}

	return r
}
