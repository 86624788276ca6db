// Package interfaces defines the cache contracts consumed by services.
package interfaces

import (
	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/caching/types"
)

// DerivationCache is the contract the derivation service uses to reuse or
// refresh session-derivation results.
type DerivationCache interface {
	Snapshot() (types.CacheSnapshot, bool)
	Replace(recordCount int, newestVisitTimeMs int64, closed []*history.Session, open *history.Session)
	Invalidate()
}
