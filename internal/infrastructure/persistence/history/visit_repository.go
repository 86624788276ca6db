// Package history provides the concrete SQL-based implementations for
// visit log and analyzed-set persistence.
//
// PURPOSE: store normalized visit records as an append-only, capacity-bounded
// log, and the durable set of already-analyzed session identifiers.
//
// This is SEPARATE from session derivation which operates on the in-memory
// derivation cache.
package history

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/persistence/database"
)

// SQLVisitRepository persists the bounded append-only visit log.
type SQLVisitRepository struct {
	db       *database.DB
	capacity int
	logger   *logging.ChanneledLogger
}

// NewSQLVisitRepository creates a new instance of the repository.
func NewSQLVisitRepository(db *database.DB, capacity int, logger *logging.ChanneledLogger) *SQLVisitRepository {
	return &SQLVisitRepository{
		db:       db,
		capacity: capacity,
		logger:   logger,
	}
}

// Append stores one visit record and evicts the oldest rows beyond capacity.
func (r *SQLVisitRepository) Append(record *history.VisitRecord) error {
	if record.ID == "" {
		record.ID = ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	}

	const query = `
		INSERT INTO visits (id, url, title, visit_time_ms, hostname, cleaned_path, search_query, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing visit insert",
		"visitId", record.ID,
		"hostname", record.Hostname,
		"visitTimeMs", record.VisitTimeMs)

	_, err := r.db.Exec(
		query,
		record.ID,
		record.URL,
		record.Title,
		record.VisitTimeMs,
		record.Hostname,
		record.CleanedPath,
		record.SearchQuery,
		time.Now().UTC().Format("2006-01-02 15:04:05"), // SQLite format
	)
	if err != nil {
		r.logger.Database().Error("Visit insert failed",
			"error", err.Error(),
			"visitId", record.ID,
			"hostname", record.Hostname)
		return fmt.Errorf("failed to store visit record: %w", err)
	}

	if err := r.trimToCapacity(); err != nil {
		return err
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return nil
}

// AppendBatch stores a slice of visit records and trims once at the end.
func (r *SQLVisitRepository) AppendBatch(records []history.VisitRecord) error {
	if len(records) == 0 {
		return nil
	}

	const query = `
		INSERT INTO visits (id, url, title, visit_time_ms, hostname, cleaned_path, search_query, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	now := time.Now().UTC().Format("2006-01-02 15:04:05")

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin visit batch: %w", err)
	}

	for i := range records {
		record := &records[i]
		if record.ID == "" {
			record.ID = ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
		}
		if _, err := tx.Exec(query,
			record.ID,
			record.URL,
			record.Title,
			record.VisitTimeMs,
			record.Hostname,
			record.CleanedPath,
			record.SearchQuery,
			now,
		); err != nil {
			tx.Rollback()
			r.logger.Database().Error("Visit batch insert failed", "error", err.Error(), "visitId", record.ID)
			return fmt.Errorf("failed to store visit batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit visit batch: %w", err)
	}

	if err := r.trimToCapacity(); err != nil {
		return err
	}

	r.logger.Database().Info("Visit batch insert completed",
		"count", len(records),
		"duration", time.Since(start))
	database.CheckAndLogSlowQuery(r.logger, "BATCH "+query, time.Since(start))
	return nil
}

// Count returns the number of records currently in the log.
func (r *SQLVisitRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM visits`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count visit records: %w", err)
	}
	return count, nil
}

// NewestVisitTimeMs returns the latest visit time in the log, zero when empty.
func (r *SQLVisitRepository) NewestVisitTimeMs() (int64, error) {
	var newest *int64
	if err := r.db.QueryRow(`SELECT MAX(visit_time_ms) FROM visits`).Scan(&newest); err != nil {
		return 0, fmt.Errorf("failed to read newest visit time: %w", err)
	}
	if newest == nil {
		return 0, nil
	}
	return *newest, nil
}

// FindAll retrieves the full log ordered by visit time.
func (r *SQLVisitRepository) FindAll() ([]history.VisitRecord, error) {
	return r.findFrom(0)
}

// FindFrom retrieves records starting at the given time-ordered offset.
// Used by incremental derivation to load only records appended since the
// last pass.
func (r *SQLVisitRepository) FindFrom(offset int) ([]history.VisitRecord, error) {
	return r.findFrom(offset)
}

func (r *SQLVisitRepository) findFrom(offset int) ([]history.VisitRecord, error) {
	const query = `
		SELECT id, url, title, visit_time_ms, hostname, cleaned_path, search_query
		FROM visits
		ORDER BY visit_time_ms, id
		LIMIT -1 OFFSET ?`

	start := time.Now()
	rows, err := r.db.Query(query, offset)
	if err != nil {
		r.logger.Database().Error("Failed to query visit records", "error", err.Error(), "offset", offset)
		return nil, fmt.Errorf("failed to query visit records: %w", err)
	}
	defer rows.Close()

	var records []history.VisitRecord
	for rows.Next() {
		var record history.VisitRecord
		var title, hostname, cleanedPath, searchQuery *string
		if err := rows.Scan(&record.ID, &record.URL, &title, &record.VisitTimeMs, &hostname, &cleanedPath, &searchQuery); err != nil {
			r.logger.Database().Error("Failed to scan visit row", "error", err.Error())
			continue
		}
		if title != nil {
			record.Title = *title
		}
		if hostname != nil {
			record.Hostname = *hostname
		}
		if cleanedPath != nil {
			record.CleanedPath = *cleanedPath
		}
		if searchQuery != nil {
			record.SearchQuery = *searchQuery
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate visit rows: %w", err)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return records, nil
}

// trimToCapacity evicts the oldest rows beyond the configured maximum count.
func (r *SQLVisitRepository) trimToCapacity() error {
	const query = `
		DELETE FROM visits WHERE id NOT IN (
			SELECT id FROM visits ORDER BY visit_time_ms DESC, id DESC LIMIT ?
		)`

	result, err := r.db.Exec(query, r.capacity)
	if err != nil {
		r.logger.Database().Error("Visit log trim failed", "error", err.Error(), "capacity", r.capacity)
		return fmt.Errorf("failed to trim visit log: %w", err)
	}

	if evicted, err := result.RowsAffected(); err == nil && evicted > 0 {
		r.logger.Database().Info("Visit log trimmed to capacity",
			"evicted", evicted,
			"capacity", r.capacity)
	}
	return nil
}
