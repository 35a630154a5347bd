package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/xkilldash9x/synapse/api/schemas"
)

const sqliteCreateHistory = `
CREATE TABLE IF NOT EXISTS history (
    id TEXT PRIMARY KEY,
    timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
    snippet TEXT,
    smell TEXT,
    original_code TEXT,
    refactored_code TEXT,
    explanation TEXT
);
CREATE INDEX IF NOT EXISTS history_timestamp_idx ON history (timestamp);
`

// SQLiteStore is the anonymous, global history feed.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path and ensures its schema.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db, log: logger.Named("store.sqlite")}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the history table if it is missing.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteCreateHistory); err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}
	return nil
}

// SaveHistory records result in the global feed.
func (s *SQLiteStore) SaveHistory(ctx context.Context, result *schemas.Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO history (id, timestamp, snippet, smell, original_code, refactored_code, explanation)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.ID,
		result.Timestamp,
		snippet(result.OriginalCode, 50),
		result.SmellDetected,
		result.OriginalCode,
		result.RefactoredCode,
		result.Explanation,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history row: %w", err)
	}
	return nil
}

// ListHistory returns the newest entries first. A limit of zero or less means no limit.
func (s *SQLiteStore) ListHistory(ctx context.Context, limit int) ([]schemas.HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	// Timestamps are cast to text so the driver returns them exactly as stored.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, CAST(timestamp AS TEXT), snippet, smell, original_code, refactored_code, explanation
		 FROM history ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	history := make([]schemas.HistoryEntry, 0)
	for rows.Next() {
		var (
			entry                                          schemas.HistoryEntry
			ts, snip, smell, original, refactored, explain sql.NullString
		)
		if err := rows.Scan(&entry.ID, &ts, &snip, &smell, &original, &refactored, &explain); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entry.Timestamp = ts.String
		entry.Snippet = snip.String
		entry.Smell = smell.String
		entry.OriginalCode = original.String
		entry.RefactoredCode = refactored.String
		entry.Explanation = explain.String
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return history, nil
}

// Stats aggregates the dashboard view over the whole feed.
func (s *SQLiteStore) Stats(ctx context.Context) (schemas.DashboardStats, error) {
	var total, smelly int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(NULLIF(smell, '')) FROM history`).Scan(&total, &smelly)
	if err != nil {
		return schemas.DashboardStats{}, fmt.Errorf("failed to count history: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, CAST(timestamp AS TEXT), smell FROM history ORDER BY timestamp DESC LIMIT ?`, recentLimit)
	if err != nil {
		return schemas.DashboardStats{}, fmt.Errorf("failed to query recent history: %w", err)
	}
	defer rows.Close()

	recent := make([]schemas.RecentProject, 0, recentLimit)
	for rows.Next() {
		var (
			id        string
			ts, smell sql.NullString
		)
		if err := rows.Scan(&id, &ts, &smell); err != nil {
			return schemas.DashboardStats{}, fmt.Errorf("failed to scan recent history: %w", err)
		}
		var smellPtr *string
		if smell.Valid {
			smellPtr = &smell.String
		}
		recent = append(recent, recentProject(id, "Anonymous Snippet", ts.String, smellPtr))
	}
	if err := rows.Err(); err != nil {
		return schemas.DashboardStats{}, fmt.Errorf("error during row iteration: %w", err)
	}

	return newStats(total, smelly, recent), nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
