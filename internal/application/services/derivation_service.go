package services

import (
	"fmt"
	"time"

	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/caching/interfaces"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/caching/types"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/performance"
)

// VisitStore is the slice of the visit repository the derivation and ingest
// services depend on.
type VisitStore interface {
	AppendBatch(records []history.VisitRecord) error
	Count() (int, error)
	NewestVisitTimeMs() (int64, error)
	FindAll() ([]history.VisitRecord, error)
	FindFrom(offset int) ([]history.VisitRecord, error)
}

// DerivationService turns the stored record sequence into sessions, memoized
// behind the derivation cache. A read with no new activity reuses the cache,
// a read with k new records folds only those k, and only a structural change
// (first call, log shrank, eviction at capacity, or a backdated record)
// forces a full rebuild.
type DerivationService struct {
	visits      VisitStore
	windower    *history.Windower
	cache       interfaces.DerivationCache
	gap         time.Duration
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewDerivationService creates a new derivation service
func NewDerivationService(visits VisitStore, windower *history.Windower, cache interfaces.DerivationCache, gap time.Duration, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *DerivationService {
	return &DerivationService{
		visits:      visits,
		windower:    windower,
		cache:       cache,
		gap:         gap,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// GetAllSessions returns every currently known session, closed sessions
// first in time order, followed by the open session if one exists.
func (s *DerivationService) GetAllSessions(now time.Time) ([]*history.Session, error) {
	marker := s.perfTracker.StartOperation("derive_sessions")
	defer marker.Complete()

	count, err := s.visits.Count()
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to read visit log size: %w", err)
	}
	newest, err := s.visits.NewestVisitTimeMs()
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to read newest visit time: %w", err)
	}

	snapshot, cached := s.cache.Snapshot()

	switch {
	case cached && count == snapshot.LastProcessedRecordCount && newest == snapshot.NewestVisitTimeMs:
		marker.AddCacheHit()
		marker.AddMetadata("branch", "reuse")
		return s.reuseWithPromotion(snapshot, count, newest, now), nil

	case cached && count > snapshot.LastProcessedRecordCount && newest > snapshot.NewestVisitTimeMs:
		marker.AddCacheHit()
		marker.AddMetadata("branch", "incremental")
		return s.deriveIncremental(snapshot, count, newest, now)

	default:
		marker.AddCacheMiss()
		marker.AddMetadata("branch", "rebuild")
		return s.rebuild(count, newest, now)
	}
}

// reuseWithPromotion serves the cached result, first re-checking whether the
// cached open session became closed purely by elapsed time.
func (s *DerivationService) reuseWithPromotion(snapshot types.CacheSnapshot, count int, newest int64, now time.Time) []*history.Session {
	closed := snapshot.ClosedSessions
	open := snapshot.OpenSession

	if open != nil && now.UnixMilli()-open.EndTimeMs > s.gap.Milliseconds() {
		open.Close()
		closed = append(closed, open)
		open = nil
		s.cache.Replace(count, newest, closed, open)
		s.logger.Sessions().Info("Open session promoted to closed by elapsed time",
			"sessionId", closed[len(closed)-1].SessionID,
			"endTime", closed[len(closed)-1].EndTime())
	}

	s.logger.Sessions().Debug("Derivation served from cache",
		"recordCount", count,
		"closedSessions", len(closed),
		"hasOpen", open != nil)
	return combineSessions(closed, open)
}

// deriveIncremental folds only the records appended since the last pass.
// The offset indexes the time-ordered row sequence, so it is only valid when
// every new record postdates the cached newest; a backdated record shifts
// the ordering underneath the offset, and the fold must restart from the
// full log instead.
func (s *DerivationService) deriveIncremental(snapshot types.CacheSnapshot, count int, newest int64, now time.Time) ([]*history.Session, error) {
	start := time.Now()
	newRecords, err := s.visits.FindFrom(snapshot.LastProcessedRecordCount)
	if err != nil {
		return nil, fmt.Errorf("failed to load new visit records: %w", err)
	}

	if len(newRecords) == 0 || newRecords[0].VisitTimeMs <= snapshot.NewestVisitTimeMs {
		s.logger.Sessions().Info("Backdated record detected, restarting derivation from full log",
			"recordCount", count,
			"cachedNewestMs", snapshot.NewestVisitTimeMs)
		return s.rebuild(count, newest, now)
	}

	result := s.windower.DeriveIncremental(snapshot.OpenSession, newRecords, now)
	closed := append(snapshot.ClosedSessions, result.Closed...)
	s.cache.Replace(count, newest, closed, result.Open)

	s.logger.Sessions().Info("Incremental session derivation completed",
		"newRecords", len(newRecords),
		"newlyClosed", len(result.Closed),
		"totalClosed", len(closed),
		"hasOpen", result.Open != nil,
		"duration", time.Since(start))
	return combineSessions(closed, result.Open), nil
}

// rebuild recomputes every session from the full record set.
func (s *DerivationService) rebuild(count int, newest int64, now time.Time) ([]*history.Session, error) {
	start := time.Now()
	records, err := s.visits.FindAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load visit records: %w", err)
	}

	result := s.windower.DeriveFull(records, now)
	s.cache.Replace(count, newest, result.Closed, result.Open)

	s.logger.Sessions().Info("Full session derivation completed",
		"recordCount", count,
		"closedSessions", len(result.Closed),
		"hasOpen", result.Open != nil,
		"duration", time.Since(start))
	return combineSessions(result.Closed, result.Open), nil
}

// Invalidate clears the memo so the next read rebuilds from the log.
func (s *DerivationService) Invalidate() {
	s.cache.Invalidate()
}

func combineSessions(closed []*history.Session, open *history.Session) []*history.Session {
	sessions := make([]*history.Session, 0, len(closed)+1)
	sessions = append(sessions, closed...)
	if open != nil {
		sessions = append(sessions, open)
	}
	return sessions
}
