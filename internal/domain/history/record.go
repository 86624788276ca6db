// Package history provides domain entities and pure derivation logic for
// browsing history: visit records, session windows, and the gap-based
// windowing algorithm that partitions one into the other.
package history

import (
	"sort"
	"time"
)

// RawVisitEvent is one page-visit event as delivered by a capture source,
// before normalization. VisitTime carries the source's raw epoch value in
// milliseconds; Title may be empty.
type RawVisitEvent struct {
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	VisitTime float64 `json:"visitTime"`
}

// HasTimestamp reports whether the event carries a usable timestamp.
func (e *RawVisitEvent) HasTimestamp() bool {
	return e.VisitTime > 0
}

// VisitRecord is one normalized browsing event. Immutable once produced.
type VisitRecord struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	VisitTimeMs int64  `json:"visitTimeMs"`
	Hostname    string `json:"hostname"`
	CleanedPath string `json:"cleanedPath"`
	SearchQuery string `json:"searchQuery,omitempty"`
}

// VisitTime returns the record's visit time as a UTC time.Time.
func (r *VisitRecord) VisitTime() time.Time {
	return time.UnixMilli(r.VisitTimeMs).UTC()
}

// SortRecordsByTime orders records by non-decreasing visit time, in place.
// Ingestion order is not assumed to equal visit-time order.
func SortRecordsByTime(records []VisitRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].VisitTimeMs < records[j].VisitTimeMs
	})
}
