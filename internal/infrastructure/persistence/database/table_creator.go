package database

import (
	"database/sql"
	"fmt"
)

// TableCreator handles the creation of the engine's database schema.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS visits (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		title TEXT,
		visit_time_ms INTEGER NOT NULL,
		hostname TEXT,
		cleaned_path TEXT,
		search_query TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS analyzed_sessions (
		session_id TEXT PRIMARY KEY,
		analyzed_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scheduled_wakes (
		purpose TEXT PRIMARY KEY,
		wake_at TIMESTAMP NOT NULL
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_visits_visit_time ON visits (visit_time_ms)`,
	`CREATE INDEX IF NOT EXISTS idx_analyzed_sessions_analyzed_at ON analyzed_sessions (analyzed_at)`,
}

// CreateSchema executes all necessary queries to build the engine's tables and indexes.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}
