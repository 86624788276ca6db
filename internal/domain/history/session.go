package history

import "time"

// SessionStatus marks whether a session can still accept records.
type SessionStatus string

const (
	StatusOpen   SessionStatus = "open"
	StatusClosed SessionStatus = "closed"
)

// Session is a contiguous run of VisitRecords where no two temporally
// adjacent records exceed the gap threshold and the total span stays within
// the max-duration cap. At most one open session exists at a time; closed
// sessions are immutable.
type Session struct {
	SessionID   string        `json:"sessionId"`
	StartTimeMs int64         `json:"startTimeMs"`
	EndTimeMs   int64         `json:"endTimeMs"`
	Items       []VisitRecord `json:"items"`
	Status      SessionStatus `json:"status"`
}

// NewSession starts a session with a single member record.
func NewSession(record VisitRecord) *Session {
	return &Session{
		StartTimeMs: record.VisitTimeMs,
		EndTimeMs:   record.VisitTimeMs,
		Items:       []VisitRecord{record},
		Status:      StatusOpen,
	}
}

// Append adds a record to an open session and advances its end boundary.
func (s *Session) Append(record VisitRecord) {
	s.Items = append(s.Items, record)
	if record.VisitTimeMs > s.EndTimeMs {
		s.EndTimeMs = record.VisitTimeMs
	}
}

// Close freezes the session: status, identifier, and boundaries are final.
func (s *Session) Close() {
	s.Status = StatusClosed
	s.SessionID = Identifier(s)
}

// StartTime returns the session start boundary as a UTC time.Time.
func (s *Session) StartTime() time.Time {
	return time.UnixMilli(s.StartTimeMs).UTC()
}

// EndTime returns the session end boundary as a UTC time.Time.
func (s *Session) EndTime() time.Time {
	return time.UnixMilli(s.EndTimeMs).UTC()
}

// Span returns the total duration covered by the session's members.
func (s *Session) Span() time.Duration {
	return time.Duration(s.EndTimeMs-s.StartTimeMs) * time.Millisecond
}

// DurationMinutes returns the session span rounded down to whole minutes.
func (s *Session) DurationMinutes() int {
	return int(s.Span() / time.Minute)
}

// Clone returns a deep copy so cached sessions cannot be mutated by callers.
func (s *Session) Clone() *Session {
	items := make([]VisitRecord, len(s.Items))
	copy(items, s.Items)
	return &Session{
		SessionID:   s.SessionID,
		StartTimeMs: s.StartTimeMs,
		EndTimeMs:   s.EndTimeMs,
		Items:       items,
		Status:      s.Status,
	}
}
