// Package scheduling persists wake deadlines for the analysis scheduler so
// a restart can recover a pending wake instead of losing it.
package scheduling

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/persistence/database"
)

// SQLWakeRepository stores one wake deadline per purpose.
type SQLWakeRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLWakeRepository creates a new instance of the repository.
func NewSQLWakeRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLWakeRepository {
	return &SQLWakeRepository{db: db, logger: logger}
}

// SetWake stores the deadline for a purpose, replacing any previous one.
func (r *SQLWakeRepository) SetWake(purpose string, wakeAt time.Time) error {
	const query = `
		INSERT INTO scheduled_wakes (purpose, wake_at) VALUES (?, ?)
		ON CONFLICT(purpose) DO UPDATE SET wake_at = excluded.wake_at`

	_, err := r.db.Exec(query, purpose, wakeAt.UTC().UnixMilli())
	if err != nil {
		r.logger.Database().Error("Failed to persist wake deadline",
			"error", err.Error(),
			"purpose", purpose,
			"wakeAt", wakeAt)
		return fmt.Errorf("failed to persist wake deadline: %w", err)
	}

	r.logger.Database().Debug("Wake deadline persisted", "purpose", purpose, "wakeAt", wakeAt)
	return nil
}

// GetWake returns the stored deadline for a purpose. The boolean is false
// when no wake is scheduled.
func (r *SQLWakeRepository) GetWake(purpose string) (time.Time, bool, error) {
	var wakeAtMs int64
	err := r.db.QueryRow(`SELECT wake_at FROM scheduled_wakes WHERE purpose = ?`, purpose).Scan(&wakeAtMs)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read wake deadline: %w", err)
	}
	return time.UnixMilli(wakeAtMs).UTC(), true, nil
}

// ClearWake removes the stored deadline for a purpose.
func (r *SQLWakeRepository) ClearWake(purpose string) error {
	if _, err := r.db.Exec(`DELETE FROM scheduled_wakes WHERE purpose = ?`, purpose); err != nil {
		return fmt.Errorf("failed to clear wake deadline: %w", err)
	}
	return nil
}
