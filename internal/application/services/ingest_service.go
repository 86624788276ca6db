package services

import (
	"fmt"
	"time"

	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/performance"
)

// WakePort schedules the deferred closure check. Scheduling replaces any
// pending wake for the same purpose.
type WakePort interface {
	ScheduleWake(purpose string, wakeAt time.Time) error
}

// ClosureWakePurpose names the single wake the ingest pipeline maintains.
const ClosureWakePurpose = "session-closure"

// IngestResult summarizes one ingest call.
type IngestResult struct {
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
	Deduped  int `json:"deduped"`
}

// IngestService runs the write path: normalize raw events, collapse
// consecutive duplicates against the log tail, append to the durable log,
// and reschedule the closure wake so the dispatcher fires just after the
// current session becomes eligible for closure.
type IngestService struct {
	normalizer  *NormalizerService
	deduper     *DedupeService
	visits      VisitStore
	scheduler   WakePort
	gap         time.Duration
	wakeMargin  time.Duration
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewIngestService creates a new ingest service
func NewIngestService(normalizer *NormalizerService, deduper *DedupeService, visits VisitStore, scheduler WakePort, gap, wakeMargin time.Duration, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *IngestService {
	return &IngestService{
		normalizer:  normalizer,
		deduper:     deduper,
		visits:      visits,
		scheduler:   scheduler,
		gap:         gap,
		wakeMargin:  wakeMargin,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// IngestBatch processes one batch of raw visit events.
func (s *IngestService) IngestBatch(events []history.RawVisitEvent) (*IngestResult, error) {
	marker := s.perfTracker.StartOperation("ingest_batch")
	defer marker.Complete()

	start := time.Now()
	records, skipped := s.normalizer.NormalizeBatch(events)
	history.SortRecordsByTime(records)

	seed, err := s.lastStoredRecord()
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	kept := s.deduper.CollapseAfter(seed, records)
	deduped := len(records) - len(kept)

	if len(kept) > 0 {
		if err := s.visits.AppendBatch(kept); err != nil {
			marker.SetError(err)
			return nil, fmt.Errorf("failed to persist ingested records: %w", err)
		}

		wakeAt := time.Now().Add(s.gap + s.wakeMargin)
		if err := s.scheduler.ScheduleWake(ClosureWakePurpose, wakeAt); err != nil {
			// The startup sweep and poll loop still cover closure detection.
			s.logger.Ingest().Error("Failed to reschedule closure wake", "error", err.Error())
		}
	}

	marker.SetSuccess(true)
	marker.AddMetadata("accepted", len(kept))
	s.logger.Ingest().Info("Ingest batch processed",
		"events", len(events),
		"accepted", len(kept),
		"skipped", skipped,
		"deduped", deduped,
		"duration", time.Since(start))

	return &IngestResult{Accepted: len(kept), Skipped: skipped, Deduped: deduped}, nil
}

// lastStoredRecord loads the newest record in the log as a dedupe seed.
func (s *IngestService) lastStoredRecord() (*history.VisitRecord, error) {
	count, err := s.visits.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to read visit log size: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	tail, err := s.visits.FindFrom(count - 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read visit log tail: %w", err)
	}
	if len(tail) == 0 {
		return nil, nil
	}
	return &tail[len(tail)-1], nil
}
