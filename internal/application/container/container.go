// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/trailmark-ai/trailmark-go/internal/application/services"
	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/analysis"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/caching/manager"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/performance"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/persistence/database"
	persistencehistory "github.com/trailmark-ai/trailmark-go/internal/infrastructure/persistence/history"
	persistencescheduling "github.com/trailmark-ai/trailmark-go/internal/infrastructure/persistence/scheduling"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/scheduling"
	"github.com/trailmark-ai/trailmark-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application services (stateless singletons)
	NormalizerService *services.NormalizerService
	DedupeService     *services.DedupeService
	IngestService     *services.IngestService
	DerivationService *services.DerivationService
	DispatchService   *services.DispatchService
	AuthService       *services.AuthService

	// Infrastructure
	DB             *database.DB
	VisitRepo      *persistencehistory.SQLVisitRepository
	AnalyzedRepo   *persistencehistory.SQLAnalyzedRepository
	WakeRepo       *persistencescheduling.SQLWakeRepository
	WakeScheduler  *scheduling.WakeScheduler
	AnalysisClient *analysis.Client
	CacheManager   *manager.Manager
	Logger         *logging.ChanneledLogger
	PerfTracker    *performance.Tracker
}

// NewContainer creates and wires all singleton services
func NewContainer(db *database.DB, cacheManager *manager.Manager, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *Container {
	visitRepo := persistencehistory.NewSQLVisitRepository(db, config.VisitLogCapacity, logger)
	analyzedRepo := persistencehistory.NewSQLAnalyzedRepository(db, config.AnalyzedSetCapacity, logger)
	wakeRepo := persistencescheduling.NewSQLWakeRepository(db, logger)

	wakeScheduler := scheduling.NewWakeScheduler(wakeRepo, config.SchedulerPollPeriod, config.StartupSweepDelay, logger)
	analysisClient := analysis.NewClient(config.AnalysisEndpoint, config.AnalysisTimeout, logger)

	windower := history.NewWindower(history.WindowerConfig{
		GapThreshold: config.SessionGapThreshold,
		MaxDuration:  config.SessionMaxDuration,
	})

	normalizerService := services.NewNormalizerService(logger)
	dedupeService := services.NewDedupeService(config.DedupeSimilarityThreshold, logger)
	derivationService := services.NewDerivationService(visitRepo, windower, cacheManager, config.SessionGapThreshold, logger, perfTracker)
	ingestService := services.NewIngestService(normalizerService, dedupeService, visitRepo, wakeScheduler, config.SessionGapThreshold, config.WakeMargin, logger, perfTracker)
	dispatchService := services.NewDispatchService(derivationService, analyzedRepo, analysisClient, wakeScheduler, config.MinSessionItems, config.AnalysisRetryDelay, logger, perfTracker)
	authService := services.NewAuthService(config.JWTSecret, config.AuthTokenTTL, logger)

	// The closure wake drives the dispatch sweep.
	wakeScheduler.Register(services.ClosureWakePurpose, dispatchService.OnWake)

	return &Container{
		NormalizerService: normalizerService,
		DedupeService:     dedupeService,
		IngestService:     ingestService,
		DerivationService: derivationService,
		DispatchService:   dispatchService,
		AuthService:       authService,

		DB:             db,
		VisitRepo:      visitRepo,
		AnalyzedRepo:   analyzedRepo,
		WakeRepo:       wakeRepo,
		WakeScheduler:  wakeScheduler,
		AnalysisClient: analysisClient,
		CacheManager:   cacheManager,
		Logger:         logger,
		PerfTracker:    perfTracker,
	}
}
