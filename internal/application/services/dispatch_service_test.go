package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/caching/manager"
)

func newDispatchFixture(t *testing.T, store *memoryVisitStore) (*DispatchService, *memoryAnalyzedStore, *recordingSubmitter, *memoryWakePort) {
	t.Helper()
	windower := history.NewWindower(history.WindowerConfig{
		GapThreshold: 30 * time.Minute,
		MaxDuration:  90 * time.Minute,
	})
	derivation := NewDerivationService(store, windower, manager.NewManager(quietLogger(t)), 30*time.Minute, quietLogger(t), testTracker())
	analyzed := &memoryAnalyzedStore{}
	submitter := &recordingSubmitter{failFor: make(map[string]bool)}
	wakes := &memoryWakePort{}
	service := NewDispatchService(derivation, analyzed, submitter, wakes, 2, 5*time.Minute, quietLogger(t), testTracker())
	return service, analyzed, submitter, wakes
}

// oldVisits returns records far enough in the past that derivation closes
// their session immediately.
func oldVisits(urls ...string) []history.VisitRecord {
	base := time.Now().Add(-4 * time.Hour)
	records := make([]history.VisitRecord, len(urls))
	for i, url := range urls {
		records[i] = history.VisitRecord{
			URL:         url,
			Title:       url,
			VisitTimeMs: base.Add(time.Duration(i) * time.Minute).UnixMilli(),
		}
	}
	return records
}

func TestSweepSubmitsClosedSessionOnce(t *testing.T) {
	store := &memoryVisitStore{}
	require.NoError(t, store.AppendBatch(oldVisits("https://go.dev/", "https://go.dev/doc/")))
	service, analyzed, submitter, _ := newDispatchFixture(t, store)

	result, err := service.Sweep(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Submitted)
	assert.Len(t, analyzed.ids, 1)

	// Second wake with no new records: nothing to do.
	result, err = service.Sweep(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, result.Submitted)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, submitter.submitted, 1)
}

func TestSweepExcludesBelowMinItems(t *testing.T) {
	store := &memoryVisitStore{}
	require.NoError(t, store.AppendBatch(oldVisits("https://go.dev/")))
	service, analyzed, _, _ := newDispatchFixture(t, store)

	result, err := service.Sweep(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, result.Eligible)
	assert.Empty(t, analyzed.ids)
}

func TestSweepSkipsOpenSessionUnlessForced(t *testing.T) {
	store := &memoryVisitStore{}
	recent := time.Now().Add(-5 * time.Minute)
	require.NoError(t, store.AppendBatch([]history.VisitRecord{
		{URL: "https://go.dev/", Title: "a", VisitTimeMs: recent.UnixMilli()},
		{URL: "https://go.dev/doc/", Title: "b", VisitTimeMs: recent.Add(time.Minute).UnixMilli()},
	}))
	service, _, submitter, _ := newDispatchFixture(t, store)

	result, err := service.Sweep(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, result.Submitted)

	result, err = service.Sweep(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Submitted)
	require.Len(t, submitter.forced, 1)
	assert.True(t, submitter.forced[0])
}

func TestSweepForceBypassesAnalyzedSet(t *testing.T) {
	store := &memoryVisitStore{}
	require.NoError(t, store.AppendBatch(oldVisits("https://go.dev/", "https://go.dev/doc/")))
	service, _, submitter, _ := newDispatchFixture(t, store)

	_, err := service.Sweep(context.Background(), false)
	require.NoError(t, err)

	result, err := service.Sweep(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Submitted)
	assert.Len(t, submitter.submitted, 2)
}

func TestSweepFailureRetriesNextWake(t *testing.T) {
	store := &memoryVisitStore{}
	require.NoError(t, store.AppendBatch(oldVisits("https://go.dev/", "https://go.dev/doc/")))
	service, analyzed, submitter, _ := newDispatchFixture(t, store)

	// Fail every submission on the first sweep.
	sessions, err := service.derivation.GetAllSessions(time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	submitter.failFor[sessions[0].SessionID] = true

	result, err := service.Sweep(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, analyzed.ids, "failed submissions stay out of the analyzed set")

	submitter.failFor = map[string]bool{}
	result, err = service.Sweep(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Submitted)
	assert.Len(t, analyzed.ids, 1)
}

func TestOnWakeReschedulesAfterFailedSubmission(t *testing.T) {
	store := &memoryVisitStore{}
	require.NoError(t, store.AppendBatch(oldVisits("https://go.dev/", "https://go.dev/doc/")))
	service, analyzed, submitter, wakes := newDispatchFixture(t, store)

	sessions, err := service.derivation.GetAllSessions(time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	submitter.failFor[sessions[0].SessionID] = true

	before := time.Now().UTC()
	service.OnWake(context.Background())
	assert.Empty(t, analyzed.ids)
	require.Len(t, wakes.scheduled, 1, "failed submission must persist a retry wake")
	assert.WithinDuration(t, before.Add(5*time.Minute), wakes.scheduled[0], time.Minute)

	// The retry wake fires with no ingest in between; the session goes out.
	submitter.failFor = map[string]bool{}
	service.OnWake(context.Background())
	assert.Len(t, analyzed.ids, 1)
	assert.Len(t, wakes.scheduled, 1, "successful sweep must not reschedule")
}
