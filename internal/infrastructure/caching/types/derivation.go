// Package types defines the cache value structures shared by stores.
package types

import (
	"sync"
	"time"

	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
)

// DerivationState is the incremental session-derivation cache. It remembers
// how far into the visit log the last derivation pass consumed, the sessions
// it produced, and the newest visit timestamp it saw. The newest timestamp
// disambiguates the at-capacity case where append plus eviction leaves the
// record count unchanged while the log contents moved.
type DerivationState struct {
	LastProcessedRecordCount int
	NewestVisitTimeMs        int64
	ClosedSessions           []*history.Session
	OpenSession              *history.Session
	LastDerivedAt            time.Time
	Mu                       sync.RWMutex
}

// CacheSnapshot is a read-only copy of the derivation state handed out to
// callers so they never touch the live cached sessions.
type CacheSnapshot struct {
	LastProcessedRecordCount int
	NewestVisitTimeMs        int64
	ClosedSessions           []*history.Session
	OpenSession              *history.Session
	LastDerivedAt            time.Time
}
