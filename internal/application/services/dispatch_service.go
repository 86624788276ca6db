package services

import (
	"context"
	"fmt"
	"time"

	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/performance"
)

// AnalyzedStore is the durable set of session identifiers already handed to
// the analysis collaborator.
type AnalyzedStore interface {
	Add(sessionID string) error
	Contains(sessionID string) (bool, error)
	Count() (int, error)
}

// AnalysisSubmitter submits one session to the analysis collaborator.
type AnalysisSubmitter interface {
	Submit(ctx context.Context, session *history.Session, force bool) error
}

// SweepResult summarizes one dispatch sweep.
type SweepResult struct {
	Eligible  int `json:"eligible"`
	Submitted int `json:"submitted"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// DispatchService hands newly closed sessions to the analysis collaborator
// exactly once. Eligibility: closed, at least minItems members, identifier
// not yet in the analyzed set. Each success is persisted into the set
// immediately, so a crash mid-sweep never re-submits a completed session;
// failures stay out of the set and retry on the next wake.
type DispatchService struct {
	derivation  *DerivationService
	analyzed    AnalyzedStore
	submitter   AnalysisSubmitter
	scheduler   WakePort
	minItems    int
	retryDelay  time.Duration
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewDispatchService creates a new dispatch service
func NewDispatchService(derivation *DerivationService, analyzed AnalyzedStore, submitter AnalysisSubmitter, scheduler WakePort, minItems int, retryDelay time.Duration, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *DispatchService {
	return &DispatchService{
		derivation:  derivation,
		analyzed:    analyzed,
		submitter:   submitter,
		scheduler:   scheduler,
		minItems:    minItems,
		retryDelay:  retryDelay,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// Sweep derives sessions and submits the eligible ones. With force set the
// analyzed-set check is bypassed and the open session, if any, is submitted
// too, for manual re-analysis of in-progress browsing.
func (s *DispatchService) Sweep(ctx context.Context, force bool) (*SweepResult, error) {
	marker := s.perfTracker.StartOperation("dispatch_sweep")
	defer marker.Complete()

	start := time.Now()
	sessions, err := s.derivation.GetAllSessions(time.Now().UTC())
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to derive sessions for dispatch: %w", err)
	}

	result := &SweepResult{}
	for _, session := range sessions {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if !s.eligible(session, force) {
			continue
		}
		result.Eligible++

		sessionID := session.SessionID
		if sessionID == "" {
			sessionID = history.Identifier(session)
		}

		if !force {
			done, err := s.analyzed.Contains(sessionID)
			if err != nil {
				marker.SetError(err)
				return result, fmt.Errorf("failed to check analyzed set: %w", err)
			}
			if done {
				result.Skipped++
				continue
			}
		}

		if err := s.submitter.Submit(ctx, session, force); err != nil {
			result.Failed++
			s.logger.Dispatch().Error("Session submission failed, will retry on next wake",
				"error", err.Error(),
				"sessionId", sessionID)
			continue
		}

		if err := s.analyzed.Add(sessionID); err != nil {
			// The submission succeeded but the set write failed; the next
			// sweep will re-submit this session.
			s.logger.Dispatch().Error("Failed to persist analyzed session after successful submission",
				"error", err.Error(),
				"sessionId", sessionID)
		}
		result.Submitted++
	}

	marker.SetSuccess(result.Failed == 0)
	s.logger.Dispatch().Info("Dispatch sweep completed",
		"sessions", len(sessions),
		"eligible", result.Eligible,
		"submitted", result.Submitted,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"force", force,
		"duration", time.Since(start))
	return result, nil
}

// OnWake is the closure-wake handler registered with the scheduler. The
// scheduler clears the deadline before firing, so when the sweep fails or
// leaves failed submissions behind a fresh wake is persisted here; without
// it a quiet browser would never trigger another retry.
func (s *DispatchService) OnWake(ctx context.Context) {
	result, err := s.Sweep(ctx, false)
	if err != nil {
		s.logger.Dispatch().Error("Closure-wake dispatch sweep failed", "error", err.Error())
	}
	if err == nil && (result == nil || result.Failed == 0) {
		return
	}

	retryAt := time.Now().UTC().Add(s.retryDelay)
	if werr := s.scheduler.ScheduleWake(ClosureWakePurpose, retryAt); werr != nil {
		s.logger.Dispatch().Error("Failed to schedule dispatch retry wake", "error", werr.Error())
		return
	}
	s.logger.Dispatch().Info("Dispatch retry wake scheduled", "retryAt", retryAt)
}

// eligible filters sessions for dispatch. Closed status is what the
// derivation pass decided against its own "now"; open sessions are only
// eligible under force.
func (s *DispatchService) eligible(session *history.Session, force bool) bool {
	if len(session.Items) < s.minItems {
		return false
	}
	if session.Status == history.StatusClosed {
		return true
	}
	return force
}
