package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 9, 22, 12, 0, 0, 0, time.UTC)

func recordAt(offset time.Duration, url string) VisitRecord {
	return VisitRecord{
		URL:         url,
		Title:       "page " + url,
		VisitTimeMs: baseTime.Add(offset).UnixMilli(),
		Hostname:    "example.com",
		CleanedPath: "/",
	}
}

func testWindower() *Windower {
	return NewWindower(WindowerConfig{
		GapThreshold: 30 * time.Minute,
		MaxDuration:  90 * time.Minute,
	})
}

func TestDeriveFullGapSplit(t *testing.T) {
	records := []VisitRecord{
		recordAt(0, "https://example.com/a"),
		recordAt(10*time.Minute, "https://example.com/b"),
		recordAt(50*time.Minute, "https://example.com/c"),
	}

	now := baseTime.Add(3 * time.Hour)
	result := testWindower().DeriveFull(records, now)

	require.Len(t, result.Closed, 2)
	assert.Nil(t, result.Open)

	first := result.Closed[0]
	assert.Equal(t, baseTime.UnixMilli(), first.StartTimeMs)
	assert.Equal(t, baseTime.Add(10*time.Minute).UnixMilli(), first.EndTimeMs)
	assert.Len(t, first.Items, 2)
	assert.Equal(t, StatusClosed, first.Status)

	second := result.Closed[1]
	assert.Equal(t, baseTime.Add(50*time.Minute).UnixMilli(), second.StartTimeMs)
	assert.Len(t, second.Items, 1)
}

func TestDeriveFullMaxDurationForceClose(t *testing.T) {
	// Records every 5 minutes from t=0 to t=95: no gap ever exceeds the
	// threshold, but the span crosses the 90-minute cap.
	var records []VisitRecord
	for m := 0; m <= 95; m += 5 {
		records = append(records, recordAt(time.Duration(m)*time.Minute, fmt.Sprintf("https://example.com/p%d", m)))
	}

	now := baseTime.Add(6 * time.Hour)
	result := testWindower().DeriveFull(records, now)

	require.Len(t, result.Closed, 2)
	assert.Nil(t, result.Open)

	first := result.Closed[0]
	assert.Equal(t, baseTime.Add(90*time.Minute).UnixMilli(), first.EndTimeMs)
	assert.Len(t, first.Items, 19)

	second := result.Closed[1]
	assert.Equal(t, baseTime.Add(95*time.Minute).UnixMilli(), second.StartTimeMs)
	assert.Len(t, second.Items, 1)
}

func TestDeriveFullTrailingSessionStaysOpen(t *testing.T) {
	records := []VisitRecord{
		recordAt(0, "https://example.com/a"),
		recordAt(5*time.Minute, "https://example.com/b"),
	}

	// "now" is within the gap of the last record.
	now := baseTime.Add(20 * time.Minute)
	result := testWindower().DeriveFull(records, now)

	assert.Empty(t, result.Closed)
	require.NotNil(t, result.Open)
	assert.Equal(t, StatusOpen, result.Open.Status)
	assert.Len(t, result.Open.Items, 2)
}

func TestDeriveFullEmptyInput(t *testing.T) {
	result := testWindower().DeriveFull(nil, baseTime)
	assert.Empty(t, result.Closed)
	assert.Nil(t, result.Open)
}

func TestDeriveFullResortsUnorderedInput(t *testing.T) {
	records := []VisitRecord{
		recordAt(10*time.Minute, "https://example.com/b"),
		recordAt(0, "https://example.com/a"),
	}

	now := baseTime.Add(3 * time.Hour)
	result := testWindower().DeriveFull(records, now)

	require.Len(t, result.Closed, 1)
	assert.Equal(t, "https://example.com/a", result.Closed[0].Items[0].URL)
	assert.Equal(t, baseTime.UnixMilli(), result.Closed[0].StartTimeMs)
}

func TestIncrementalMatchesFullDerivation(t *testing.T) {
	var records []VisitRecord
	offsets := []time.Duration{
		0, 4 * time.Minute, 9 * time.Minute,
		55 * time.Minute, 60 * time.Minute,
		3 * time.Hour, 3*time.Hour + 10*time.Minute, 3*time.Hour + 70*time.Minute,
		7 * time.Hour,
	}
	for i, off := range offsets {
		records = append(records, recordAt(off, fmt.Sprintf("https://example.com/p%d", i)))
	}

	now := baseTime.Add(24 * time.Hour)
	w := testWindower()

	full := w.DeriveFull(records, now)

	// Same records fed through three incremental passes, each running
	// shortly after its chunk's last record arrived; the final pass runs at
	// the same "now" as the full derivation.
	chunks := [][]VisitRecord{records[:3], records[3:6], records[6:]}
	var incrementalClosed []*Session
	var open *Session
	for i, chunk := range chunks {
		passNow := time.UnixMilli(chunk[len(chunk)-1].VisitTimeMs).Add(time.Minute)
		if i == len(chunks)-1 {
			passNow = now
		}
		result := w.DeriveIncremental(open, chunk, passNow)
		incrementalClosed = append(incrementalClosed, result.Closed...)
		open = result.Open
	}

	require.Equal(t, len(full.Closed), len(incrementalClosed))
	for i := range full.Closed {
		assert.Equal(t, full.Closed[i].SessionID, incrementalClosed[i].SessionID)
		assert.Equal(t, full.Closed[i].StartTimeMs, incrementalClosed[i].StartTimeMs)
		assert.Equal(t, full.Closed[i].EndTimeMs, incrementalClosed[i].EndTimeMs)
		assert.Equal(t, len(full.Closed[i].Items), len(incrementalClosed[i].Items))
	}
	assert.Nil(t, open)
	assert.Nil(t, full.Open)
}

func TestIncrementalDoesNotMutateSeed(t *testing.T) {
	w := testWindower()
	now := baseTime.Add(10 * time.Minute)

	seedResult := w.DeriveFull([]VisitRecord{recordAt(0, "https://example.com/a")}, now)
	require.NotNil(t, seedResult.Open)
	seed := seedResult.Open
	itemsBefore := len(seed.Items)

	w.DeriveIncremental(seed, []VisitRecord{recordAt(5*time.Minute, "https://example.com/b")}, now)

	assert.Equal(t, itemsBefore, len(seed.Items))
	assert.Equal(t, StatusOpen, seed.Status)
}
