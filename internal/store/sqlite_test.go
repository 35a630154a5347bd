package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synapse/api/schemas"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := OpenSQLite(context.Background(), path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func historyResult(id, ts, code string, smell *string) *schemas.Result {
	return &schemas.Result{
		ID:             id,
		Timestamp:      ts,
		OriginalCode:   code,
		RefactoredCode: code + " // refactored",
		Explanation:    "explained " + id,
		SmellDetected:  smell,
	}
}

func TestSQLite_SaveAndList(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	long := strings.Repeat("x", 80)
	require.NoError(t, s.SaveHistory(ctx, historyResult("a", "2025-01-01T00:00:00.000Z", long, schemas.StringPtr("Magic numbers"))))
	require.NoError(t, s.SaveHistory(ctx, historyResult("b", "2025-01-03T00:00:00.000Z", "print(1)", nil)))
	require.NoError(t, s.SaveHistory(ctx, historyResult("c", "2025-01-02T00:00:00.000Z", "let y", nil)))

	history, err := s.ListHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)

	ids := []string{history[0].ID, history[1].ID, history[2].ID}
	assert.Equal(t, []string{"b", "c", "a"}, ids, "newest first")

	oldest := history[2]
	assert.Equal(t, "2025-01-01T00:00:00.000Z", oldest.Timestamp)
	assert.Equal(t, strings.Repeat("x", 50)+"...", oldest.Snippet)
	assert.Equal(t, "Magic numbers", oldest.Smell)
	assert.Equal(t, long, oldest.OriginalCode)
	assert.Equal(t, long+" // refactored", oldest.RefactoredCode)
	assert.Equal(t, "explained a", oldest.Explanation)
	assert.Empty(t, history[0].Smell)

	limited, err := s.ListHistory(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLite_SaveReplacesSameID(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SaveHistory(ctx, historyResult("dup", "2025-01-01T00:00:00.000Z", "one", nil)))
	require.NoError(t, s.SaveHistory(ctx, historyResult("dup", "2025-01-01T00:00:00.000Z", "two", nil)))

	history, err := s.ListHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "two", history[0].OriginalCode)
}

func TestSQLite_Stats(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	empty, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalAnalyses)
	assert.NotNil(t, empty.RecentProjects)
	assert.Empty(t, empty.RecentProjects)

	for i, ts := range []string{
		"2025-01-01T00:00:00.000Z", "2025-01-02T00:00:00.000Z", "2025-01-03T00:00:00.000Z",
		"2025-01-04T00:00:00.000Z", "2025-01-05T00:00:00.000Z", "2025-01-06T00:00:00.000Z",
	} {
		var smell *string
		if i%2 == 0 {
			smell = schemas.StringPtr("Long function")
		}
		require.NoError(t, s.SaveHistory(ctx, historyResult(string(rune('a'+i)), ts, "code", smell)))
	}

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.TotalAnalyses)
	assert.Equal(t, 3, stats.SmellsFixed)
	assert.Equal(t, 1.5, stats.TimeSaved)
	require.Len(t, stats.RecentProjects, recentLimit)

	newest := stats.RecentProjects[0]
	assert.Equal(t, "f", newest.ID)
	assert.Equal(t, "Anonymous Snippet", newest.Title)
	assert.Equal(t, "2025-01-06T00:00:00.000Z", newest.Date)
	assert.Equal(t, "Completed", newest.Status)
	assert.Equal(t, 0, newest.Smells)
	assert.Equal(t, 1, stats.RecentProjects[1].Smells)
}
