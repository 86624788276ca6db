// Package manager provides centralized cache operations by delegating to
// specialized stores.
package manager

import (
	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/caching/interfaces"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/caching/stores"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/caching/types"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
)

// Interface assertions to ensure Manager implements all required interfaces.
var _ interfaces.DerivationCache = (*Manager)(nil)

// Manager aggregates the cache stores behind one handle.
type Manager struct {
	derivationStore *stores.DerivationStore
	logger          *logging.ChanneledLogger
}

func NewManager(logger *logging.ChanneledLogger) *Manager {
	if logger != nil {
		logger.Cache().Info("Initializing cache manager", "stores", []string{"derivation"})
	}

	return &Manager{
		derivationStore: stores.NewDerivationStore(logger),
		logger:          logger,
	}
}

func (m *Manager) Snapshot() (types.CacheSnapshot, bool) {
	return m.derivationStore.Snapshot()
}

func (m *Manager) Replace(recordCount int, newestVisitTimeMs int64, closed []*history.Session, open *history.Session) {
	m.derivationStore.Replace(recordCount, newestVisitTimeMs, closed, open)
}

func (m *Manager) Invalidate() {
	m.derivationStore.Invalidate()
}
