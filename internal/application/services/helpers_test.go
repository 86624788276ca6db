package services

import (
	"context"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/performance"
)

func quietLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		DefaultLevel:  slog.LevelError + 4,
		ChannelLevels: make(map[logging.Channel]slog.Level),
	})
	require.NoError(t, err)
	return logger
}

func testTracker() *performance.Tracker {
	return performance.NewTracker(nil)
}

// memoryVisitStore backs service tests without a database.
type memoryVisitStore struct {
	records   []history.VisitRecord
	appendErr error
}

func (m *memoryVisitStore) AppendBatch(records []history.VisitRecord) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, records...)
	sort.SliceStable(m.records, func(i, j int) bool {
		return m.records[i].VisitTimeMs < m.records[j].VisitTimeMs
	})
	return nil
}

func (m *memoryVisitStore) Count() (int, error) { return len(m.records), nil }

func (m *memoryVisitStore) NewestVisitTimeMs() (int64, error) {
	if len(m.records) == 0 {
		return 0, nil
	}
	return m.records[len(m.records)-1].VisitTimeMs, nil
}

func (m *memoryVisitStore) FindAll() ([]history.VisitRecord, error) { return m.FindFrom(0) }

func (m *memoryVisitStore) FindFrom(offset int) ([]history.VisitRecord, error) {
	if offset >= len(m.records) {
		return nil, nil
	}
	out := make([]history.VisitRecord, len(m.records)-offset)
	copy(out, m.records[offset:])
	return out, nil
}

type memoryWakePort struct {
	scheduled []time.Time
}

func (m *memoryWakePort) ScheduleWake(purpose string, wakeAt time.Time) error {
	m.scheduled = append(m.scheduled, wakeAt)
	return nil
}

type memoryAnalyzedStore struct {
	ids []string
}

func (m *memoryAnalyzedStore) Add(sessionID string) error {
	m.ids = append(m.ids, sessionID)
	return nil
}

func (m *memoryAnalyzedStore) Contains(sessionID string) (bool, error) {
	for _, id := range m.ids {
		if id == sessionID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryAnalyzedStore) Count() (int, error) { return len(m.ids), nil }

type recordingSubmitter struct {
	submitted []string
	forced    []bool
	failFor   map[string]bool
}

func (r *recordingSubmitter) Submit(ctx context.Context, session *history.Session, force bool) error {
	id := session.SessionID
	if id == "" {
		id = history.Identifier(session)
	}
	if r.failFor[id] {
		return context.DeadlineExceeded
	}
	r.submitted = append(r.submitted, id)
	r.forced = append(r.forced, force)
	return nil
}
