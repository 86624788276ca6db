package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
)

func newIngestFixture(t *testing.T) (*IngestService, *memoryVisitStore, *memoryWakePort) {
	t.Helper()
	store := &memoryVisitStore{}
	wake := &memoryWakePort{}
	service := NewIngestService(
		NewNormalizerService(quietLogger(t)),
		NewDedupeService(0.72, quietLogger(t)),
		store,
		wake,
		30*time.Minute,
		2*time.Minute,
		quietLogger(t),
		testTracker(),
	)
	return service, store, wake
}

func TestIngestBatchPersistsAndSchedulesWake(t *testing.T) {
	service, store, wake := newIngestFixture(t)

	before := time.Now()
	result, err := service.IngestBatch([]history.RawVisitEvent{
		{URL: "https://go.dev/doc/", Title: "Documentation", VisitTime: 1_758_542_400_000},
		{URL: "https://go.dev/blog/", Title: "Blog", VisitTime: 1_758_542_460_000},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Accepted)
	assert.Zero(t, result.Skipped)
	assert.Zero(t, result.Deduped)
	assert.Len(t, store.records, 2)

	require.Len(t, wake.scheduled, 1)
	wantWake := before.Add(32 * time.Minute)
	assert.WithinDuration(t, wantWake, wake.scheduled[0], time.Minute)
}

func TestIngestBatchSkipsEventsWithoutTimestamp(t *testing.T) {
	service, store, _ := newIngestFixture(t)

	result, err := service.IngestBatch([]history.RawVisitEvent{
		{URL: "https://go.dev/doc/", Title: "Documentation", VisitTime: 1_758_542_400_000},
		{URL: "https://go.dev/blog/", Title: "Blog"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Accepted)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, store.records, 1)
}

func TestIngestBatchDedupesAgainstStoredTail(t *testing.T) {
	service, store, wake := newIngestFixture(t)

	_, err := service.IngestBatch([]history.RawVisitEvent{
		{URL: "https://news.example.com/story/climate-report", Title: "Climate Report", VisitTime: 1_758_542_400_000},
	})
	require.NoError(t, err)

	result, err := service.IngestBatch([]history.RawVisitEvent{
		{URL: "https://news.example.com/story/climate-report?utm_source=mail", Title: "Climate Report", VisitTime: 1_758_542_460_000},
	})
	require.NoError(t, err)

	assert.Zero(t, result.Accepted)
	assert.Equal(t, 1, result.Deduped)
	assert.Len(t, store.records, 1)
	assert.Len(t, wake.scheduled, 1, "empty batch must not reschedule the wake")
}

func TestIngestBatchEmptyInput(t *testing.T) {
	service, store, wake := newIngestFixture(t)

	result, err := service.IngestBatch(nil)
	require.NoError(t, err)
	assert.Zero(t, result.Accepted)
	assert.Empty(t, store.records)
	assert.Empty(t, wake.scheduled)
}
