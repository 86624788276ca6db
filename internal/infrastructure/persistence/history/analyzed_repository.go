package history

import (
	"fmt"
	"time"

	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/persistence/database"
)

// SQLAnalyzedRepository persists the set of session identifiers that have
// already been handed to the analysis collaborator. Membership is durable so
// a restart never re-dispatches a session that was already analyzed.
type SQLAnalyzedRepository struct {
	db       *database.DB
	capacity int
	logger   *logging.ChanneledLogger
}

// NewSQLAnalyzedRepository creates a new instance of the repository.
func NewSQLAnalyzedRepository(db *database.DB, capacity int, logger *logging.ChanneledLogger) *SQLAnalyzedRepository {
	return &SQLAnalyzedRepository{
		db:       db,
		capacity: capacity,
		logger:   logger,
	}
}

// Add records a session as analyzed, evicting the oldest entries beyond
// capacity. The write happens immediately so a crash mid-sweep loses at
// most the in-flight dispatch, never a completed one.
func (r *SQLAnalyzedRepository) Add(sessionID string) error {
	start := time.Now()

	const query = `
		INSERT INTO analyzed_sessions (session_id, analyzed_at) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET analyzed_at = excluded.analyzed_at`

	_, err := r.db.Exec(query, sessionID, time.Now().UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		r.logger.Database().Error("Failed to record analyzed session",
			"error", err.Error(),
			"sessionId", sessionID)
		return fmt.Errorf("failed to record analyzed session: %w", err)
	}

	const trim = `
		DELETE FROM analyzed_sessions WHERE session_id NOT IN (
			SELECT session_id FROM analyzed_sessions ORDER BY analyzed_at DESC, session_id DESC LIMIT ?
		)`
	if _, err := r.db.Exec(trim, r.capacity); err != nil {
		return fmt.Errorf("failed to trim analyzed set: %w", err)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return nil
}

// Contains reports whether a session identifier is in the analyzed set.
func (r *SQLAnalyzedRepository) Contains(sessionID string) (bool, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM analyzed_sessions WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check analyzed set: %w", err)
	}
	return count > 0, nil
}

// All returns every analyzed session identifier, oldest first.
func (r *SQLAnalyzedRepository) All() ([]string, error) {
	rows, err := r.db.Query(`SELECT session_id FROM analyzed_sessions ORDER BY analyzed_at, session_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load analyzed set: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			r.logger.Database().Error("Failed to scan analyzed session row", "error", err.Error())
			continue
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analyzed set: %w", err)
	}
	return ids, nil
}

// Count returns the size of the analyzed set.
func (r *SQLAnalyzedRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM analyzed_sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count analyzed set: %w", err)
	}
	return count, nil
}
