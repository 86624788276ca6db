package history

import "time"

// WindowerConfig holds the gap/duration rules for session derivation.
// Values are fixed at deployment.
type WindowerConfig struct {
	GapThreshold time.Duration // max silence between adjacent records
	MaxDuration  time.Duration // force-close cap on total session span
}

// DeriveResult is the outcome of one derivation pass. In incremental mode
// Closed contains only sessions closed by this pass.
type DeriveResult struct {
	Closed []*Session
	Open   *Session
}

// Windower partitions a time-ordered record sequence into session windows.
// The fold is deterministic: a fixed input sequence with fixed thresholds
// always yields the same boundaries and identifiers, whether derived in one
// full pass or across any series of incremental passes.
type Windower struct {
	config WindowerConfig
}

// NewWindower creates a windower with the given thresholds.
func NewWindower(config WindowerConfig) *Windower {
	return &Windower{config: config}
}

// DeriveFull computes sessions from the entire record set. The input is
// re-sorted by visit time; arrival order is not trusted.
func (w *Windower) DeriveFull(records []VisitRecord, now time.Time) DeriveResult {
	sorted := make([]VisitRecord, len(records))
	copy(sorted, records)
	SortRecordsByTime(sorted)

	return w.fold(nil, sorted, now)
}

// DeriveIncremental extends a previously derived open session with records
// appended since the last pass. Only newly closed sessions are returned.
func (w *Windower) DeriveIncremental(open *Session, newRecords []VisitRecord, now time.Time) DeriveResult {
	sorted := make([]VisitRecord, len(newRecords))
	copy(sorted, newRecords)
	SortRecordsByTime(sorted)

	var seed *Session
	if open != nil {
		seed = open.Clone()
	}
	return w.fold(seed, sorted, now)
}

// fold runs the gap/duration partition over sorted records, seeded with an
// optional running session.
func (w *Windower) fold(running *Session, sorted []VisitRecord, now time.Time) DeriveResult {
	gapMs := w.config.GapThreshold.Milliseconds()
	maxMs := w.config.MaxDuration.Milliseconds()

	var closed []*Session

	for i := range sorted {
		record := sorted[i]
		if running == nil {
			running = NewSession(record)
			continue
		}

		exceedsGap := record.VisitTimeMs-running.EndTimeMs > gapMs
		exceedsSpan := record.VisitTimeMs-running.StartTimeMs > maxMs
		if exceedsGap || exceedsSpan {
			running.Close()
			closed = append(closed, running)
			running = NewSession(record)
			continue
		}

		running.Append(record)
	}

	// A trailing session whose end has fallen more than the gap behind "now"
	// is closed purely by elapsed time.
	if running != nil && now.UnixMilli()-running.EndTimeMs > gapMs {
		running.Close()
		closed = append(closed, running)
		running = nil
	}

	return DeriveResult{Closed: closed, Open: running}
}
