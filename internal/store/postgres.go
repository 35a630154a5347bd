package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synapse/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const (
	defaultRefactorType = "clean-code"
	defaultAnalysisType = "single_file"
	// recentLimit is how many sessions the dashboard shows.
	recentLimit = 5
)

const sqlCreateSessions = `
CREATE TABLE IF NOT EXISTS refactoring_sessions (
    id              UUID PRIMARY KEY,
    user_id         TEXT NOT NULL,
    input_code      TEXT NOT NULL,
    refactored_code TEXT,
    smell_detected  TEXT,
    explanation     TEXT,
    metrics         JSONB,
    refactor_type   TEXT,
    analysis_type   TEXT,
    safety_status   TEXT,
    language        TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS refactoring_sessions_user_id_idx ON refactoring_sessions (user_id);
CREATE INDEX IF NOT EXISTS refactoring_sessions_created_at_idx ON refactoring_sessions (created_at);
`

const sqlInsertSession = `
INSERT INTO refactoring_sessions
    (id, user_id, input_code, refactored_code, smell_detected, explanation, metrics,
     refactor_type, analysis_type, safety_status, language, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO NOTHING;
`

const sqlListSessions = `
SELECT id, created_at, input_code, refactored_code, smell_detected, explanation, metrics, language, analysis_type
FROM refactoring_sessions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2;
`

const sqlCountSessions = `
SELECT COUNT(*), COUNT(smell_detected)
FROM refactoring_sessions
WHERE user_id = $1;
`

const sqlRecentSessions = `
SELECT id, created_at, smell_detected
FROM refactoring_sessions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2;
`

// PostgresStore keeps per-user refactoring sessions.
type PostgresStore struct {
	pool DBPool
	log  *zap.Logger
}

// NewPostgresStore creates a new store instance and verifies the connection.
func NewPostgresStore(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{
		pool: pool,
		log:  logger.Named("store.postgres"),
	}, nil
}

// EnsureSchema creates the sessions table and its indexes if they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, sqlCreateSessions); err != nil {
		return fmt.Errorf("failed to create refactoring_sessions schema: %w", err)
	}
	return nil
}

// SaveSession inserts one Result for userID.
func (s *PostgresStore) SaveSession(ctx context.Context, userID string, result *schemas.Result) error {
	if userID == "" {
		return errors.New("cannot save session without a user id")
	}

	id, err := uuid.Parse(result.ID)
	if err != nil {
		// Non-UUID ids only come from tests and older clients.
		id = uuid.New()
	}

	metrics, err := json.Marshal(result.Metrics)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}

	createdAt := time.Now().UTC()
	if ts, err := time.Parse(time.RFC3339Nano, result.Timestamp); err == nil {
		createdAt = ts.UTC()
	}

	_, err = s.pool.Exec(ctx, sqlInsertSession,
		id.String(), userID, result.OriginalCode, result.RefactoredCode,
		result.SmellDetected, result.Explanation, metrics,
		orDefault(result.RefactorType, defaultRefactorType),
		orDefault(string(result.AnalysisType), defaultAnalysisType),
		nullable(string(result.SafetyStatus)),
		nullable(result.Language),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert refactoring session: %w", err)
	}
	return nil
}

// ListHistory returns the newest sessions for userID.
func (s *PostgresStore) ListHistory(ctx context.Context, userID string, limit int) ([]schemas.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx, sqlListSessions, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	history := make([]schemas.HistoryEntry, 0)
	for rows.Next() {
		var (
			entry        schemas.HistoryEntry
			createdAt    time.Time
			refactored   *string
			smell        *string
			explanation  *string
			metrics      []byte
			language     *string
			analysisType *string
		)
		if err := rows.Scan(&entry.ID, &createdAt, &entry.OriginalCode, &refactored, &smell,
			&explanation, &metrics, &language, &analysisType); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}

		entry.Timestamp = schemas.FormatTimestamp(createdAt)
		entry.Snippet = snippet(entry.OriginalCode, 100)
		entry.RefactoredCode = deref(refactored)
		entry.Smell = deref(smell)
		entry.Explanation = deref(explanation)
		entry.Language = deref(language)
		entry.AnalysisType = deref(analysisType)
		entry.Metrics = decodeMetrics(metrics)
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return history, nil
}

// Stats aggregates the dashboard view for userID.
func (s *PostgresStore) Stats(ctx context.Context, userID string) (schemas.DashboardStats, error) {
	var total, smelly int64
	if err := s.pool.QueryRow(ctx, sqlCountSessions, userID).Scan(&total, &smelly); err != nil {
		return schemas.DashboardStats{}, fmt.Errorf("failed to count sessions: %w", err)
	}

	rows, err := s.pool.Query(ctx, sqlRecentSessions, userID, recentLimit)
	if err != nil {
		return schemas.DashboardStats{}, fmt.Errorf("failed to query recent sessions: %w", err)
	}
	defer rows.Close()

	recent := make([]schemas.RecentProject, 0, recentLimit)
	for rows.Next() {
		var (
			id        string
			createdAt time.Time
			smell     *string
		)
		if err := rows.Scan(&id, &createdAt, &smell); err != nil {
			return schemas.DashboardStats{}, fmt.Errorf("failed to scan recent session: %w", err)
		}
		recent = append(recent, recentProject(id, "Code Snippet", schemas.FormatTimestamp(createdAt), smell))
	}
	if err := rows.Err(); err != nil {
		return schemas.DashboardStats{}, fmt.Errorf("error during row iteration: %w", err)
	}

	return newStats(int(total), int(smelly), recent), nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
