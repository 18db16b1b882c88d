package project

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, path string) *SQLiteRepository {
	t.Helper()
	repo, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repositoryContract(t, func(t *testing.T) Repository {
		return openTestDB(t, filepath.Join(t.TempDir(), "autocut.db"))
	})
}

func TestOpenSQLite_CreatesTables(t *testing.T) {
	repo := openTestDB(t, filepath.Join(t.TempDir(), "nested", "autocut.db"))

	for _, table := range []string{"projects", "exports", "_migrations"} {
		var name string
		err := repo.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}

	var journalMode string
	require.NoError(t, repo.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)
}

func TestOpenSQLite_MigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autocut.db")

	first, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := openTestDB(t, path)
	var count int
	require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestOpenSQLite_FailsInterruptedAnalyses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autocut.db")
	ctx := context.Background()

	first, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	p := NewWithID("prj-1-abcdef01", "/m.wav", scenarioConfig())
	require.NoError(t, p.StartAnalysis())
	require.NoError(t, first.Save(ctx, p))
	require.NoError(t, first.Close())

	second := openTestDB(t, path)
	got, err := second.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "interrupted by restart", got.Error)
}
