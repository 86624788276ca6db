// Package scheduling runs the durable wake scheduler. Callers schedule a
// single pending wake per purpose; the deadline is persisted so a process
// restart recovers it, and a startup sweep fires any wake that came due while
// the process was down.
package scheduling

import (
	"context"
	"sync"
	"time"

	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
)

// WakeStore is the persistence contract for wake deadlines.
type WakeStore interface {
	SetWake(purpose string, wakeAt time.Time) error
	GetWake(purpose string) (time.Time, bool, error)
	ClearWake(purpose string) error
}

// WakeFunc is invoked when a scheduled wake comes due.
type WakeFunc func(ctx context.Context)

// WakeScheduler polls persisted wake deadlines and fires registered
// callbacks when they come due. Scheduling a wake for a purpose replaces any
// pending wake for that purpose, so repeated ingests collapse into one
// deferred callback.
type WakeScheduler struct {
	store      WakeStore
	pollPeriod time.Duration
	sweepDelay time.Duration
	logger     *logging.ChanneledLogger

	mu        sync.RWMutex
	callbacks map[string]WakeFunc
}

// NewWakeScheduler creates a scheduler backed by the given wake store.
func NewWakeScheduler(store WakeStore, pollPeriod, sweepDelay time.Duration, logger *logging.ChanneledLogger) *WakeScheduler {
	return &WakeScheduler{
		store:      store,
		pollPeriod: pollPeriod,
		sweepDelay: sweepDelay,
		logger:     logger,
		callbacks:  make(map[string]WakeFunc),
	}
}

// Register binds the callback fired when a wake for purpose comes due.
// Must be called before Start.
func (ws *WakeScheduler) Register(purpose string, fn WakeFunc) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.callbacks[purpose] = fn
}

// ScheduleWake persists a wake deadline, replacing any pending wake for the
// same purpose.
func (ws *WakeScheduler) ScheduleWake(purpose string, wakeAt time.Time) error {
	if err := ws.store.SetWake(purpose, wakeAt); err != nil {
		return err
	}
	ws.logger.Scheduler().Debug("Wake scheduled", "purpose", purpose, "wakeAt", wakeAt.UTC())
	return nil
}

// CancelWake drops any pending wake for the purpose.
func (ws *WakeScheduler) CancelWake(purpose string) error {
	return ws.store.ClearWake(purpose)
}

// Start runs the scheduler loop until the context is cancelled. A startup
// sweep runs after a short delay and fires every registered callback
// regardless of persisted state, so work whose deadline was lost during
// downtime is still picked up.
func (ws *WakeScheduler) Start(ctx context.Context) {
	ws.logger.Scheduler().Info("Wake scheduler started",
		"pollPeriod", ws.pollPeriod,
		"sweepDelay", ws.sweepDelay)

	select {
	case <-ctx.Done():
		return
	case <-time.After(ws.sweepDelay):
		ws.sweep(ctx, true)
	}

	ticker := time.NewTicker(ws.pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ws.logger.Scheduler().Info("Wake scheduler stopping")
			return
		case <-ticker.C:
			ws.sweep(ctx, false)
		}
	}
}

// sweep fires the callback for every registered purpose whose persisted
// deadline has passed. The deadline is cleared before the callback runs; the
// callback reschedules if more work remains. A startup sweep fires every
// registered callback whether or not a deadline is persisted, leaving a
// still-future deadline in place.
func (ws *WakeScheduler) sweep(ctx context.Context, startup bool) {
	ws.mu.RLock()
	purposes := make([]string, 0, len(ws.callbacks))
	for purpose := range ws.callbacks {
		purposes = append(purposes, purpose)
	}
	ws.mu.RUnlock()

	now := time.Now().UTC()
	for _, purpose := range purposes {
		select {
		case <-ctx.Done():
			return
		default:
		}

		wakeAt, pending, err := ws.store.GetWake(purpose)
		if err != nil {
			ws.logger.Scheduler().Error("Failed to read wake deadline", "error", err.Error(), "purpose", purpose)
			continue
		}
		due := pending && !wakeAt.After(now)
		if !due && !startup {
			continue
		}

		if due {
			if err := ws.store.ClearWake(purpose); err != nil {
				ws.logger.Scheduler().Error("Failed to clear wake deadline", "error", err.Error(), "purpose", purpose)
				continue
			}
		}

		ws.logger.Scheduler().Info("Wake fired",
			"purpose", purpose,
			"due", due,
			"startupSweep", startup)

		ws.mu.RLock()
		fn := ws.callbacks[purpose]
		ws.mu.RUnlock()
		if fn != nil {
			fn(ctx)
		}
	}
}
