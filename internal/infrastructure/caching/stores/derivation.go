// Package stores provides concrete cache store implementations
package stores

import (
	"time"

	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/caching/types"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
)

// DerivationStore holds the incremental session-derivation cache.
type DerivationStore struct {
	state  types.DerivationState
	logger *logging.ChanneledLogger
}

// NewDerivationStore creates a new derivation cache store
func NewDerivationStore(logger *logging.ChanneledLogger) *DerivationStore {
	if logger != nil {
		logger.Cache().Info("Initializing derivation cache store")
	}
	return &DerivationStore{logger: logger}
}

// Snapshot returns a copy of the cached derivation state. The boolean is
// false when no derivation pass has populated the cache yet.
func (ds *DerivationStore) Snapshot() (types.CacheSnapshot, bool) {
	start := time.Now()
	ds.state.Mu.RLock()
	defer ds.state.Mu.RUnlock()

	if ds.state.LastDerivedAt.IsZero() {
		if ds.logger != nil {
			ds.logger.Cache().Debug("Cache operation", "operation", "snapshot", "type", "derivation", "hit", false, "reason", "never_derived", "duration", time.Since(start))
		}
		return types.CacheSnapshot{}, false
	}

	snapshot := types.CacheSnapshot{
		LastProcessedRecordCount: ds.state.LastProcessedRecordCount,
		NewestVisitTimeMs:        ds.state.NewestVisitTimeMs,
		ClosedSessions:           make([]*history.Session, len(ds.state.ClosedSessions)),
		LastDerivedAt:            ds.state.LastDerivedAt,
	}
	for i, session := range ds.state.ClosedSessions {
		snapshot.ClosedSessions[i] = session.Clone()
	}
	if ds.state.OpenSession != nil {
		snapshot.OpenSession = ds.state.OpenSession.Clone()
	}

	if ds.logger != nil {
		ds.logger.Cache().Debug("Cache operation", "operation", "snapshot", "type", "derivation", "hit", true, "closedSessions", len(snapshot.ClosedSessions), "hasOpen", snapshot.OpenSession != nil, "duration", time.Since(start))
	}
	return snapshot, true
}

// Replace overwrites the cached derivation state with a fresh result.
func (ds *DerivationStore) Replace(recordCount int, newestVisitTimeMs int64, closed []*history.Session, open *history.Session) {
	start := time.Now()
	ds.state.Mu.Lock()
	defer ds.state.Mu.Unlock()

	ds.state.LastProcessedRecordCount = recordCount
	ds.state.NewestVisitTimeMs = newestVisitTimeMs
	ds.state.ClosedSessions = closed
	ds.state.OpenSession = open
	ds.state.LastDerivedAt = time.Now().UTC()

	if ds.logger != nil {
		ds.logger.Cache().Debug("Cache operation", "operation", "replace", "type", "derivation", "recordCount", recordCount, "closedSessions", len(closed), "hasOpen", open != nil, "duration", time.Since(start))
	}
}

// Invalidate clears the cache so the next read triggers a full rebuild.
func (ds *DerivationStore) Invalidate() {
	ds.state.Mu.Lock()
	defer ds.state.Mu.Unlock()

	ds.state.LastProcessedRecordCount = 0
	ds.state.NewestVisitTimeMs = 0
	ds.state.ClosedSessions = nil
	ds.state.OpenSession = nil
	ds.state.LastDerivedAt = time.Time{}

	if ds.logger != nil {
		ds.logger.Cache().Debug("Cache operation", "operation", "invalidate", "type", "derivation")
	}
}
