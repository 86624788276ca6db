// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trailmark-ai/trailmark-go/internal/application/container"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/caching/manager"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/performance"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/persistence/database"
	"github.com/trailmark-ai/trailmark-go/internal/presentation/http/server"
	"github.com/trailmark-ai/trailmark-go/pkg/config"
)

// Initialize performs the complete startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	// Step 1: Initialize the channeled logger and performance tracker
	log.Println("Initializing...")
	logger, err := logging.NewChanneledLogger(nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()
	perfTracker := performance.NewTracker(nil)
	logger.Startup().Info("Channeled logging initialized")

	// Step 2: Connect the database and ensure the schema
	logger.Startup().Info("Connecting database...", "driver", config.DBDriver, "path", config.DBPath)
	db, err := database.NewConnectionWithLogger(config.DBDriver, config.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer db.Close()

	if err := database.NewTableCreator().CreateSchema(db.DB); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	logger.Startup().Info("Database ready")

	// Step 3: Initialize the cache system
	logger.Startup().Info("Initializing cache system...")
	cacheManager := manager.NewManager(logger)

	// Step 4: Create the dependency injection container
	logger.Startup().Info("Initializing dependency injection container...")
	appContainer := container.NewContainer(db, cacheManager, logger, perfTracker)
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 5: Start the wake scheduler. Its startup sweep covers closure
	// wakes missed while the process was down.
	logger.Startup().Info("Starting wake scheduler...",
		"pollPeriod", config.SchedulerPollPeriod,
		"sweepDelay", config.StartupSweepDelay)
	go appContainer.WakeScheduler.Start(ctx)

	// Step 6: Start the HTTP server
	logger.Startup().Info("Starting HTTP server...")
	port := config.Port
	httpServer := server.New(port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
