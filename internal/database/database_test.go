package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/ebooklib/internal/config"
	"github.com/mrlokans/ebooklib/internal/entities"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(config.Database{
		Driver: config.DatabaseDriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase_SeedsCategories(t *testing.T) {
	db := setupTestDB(t)

	var count int64
	require.NoError(t, db.DB.Model(&entities.Category{}).Count(&count).Error)
	assert.Equal(t, int64(len(defaultCategories)), count)

	// Seeding again must not duplicate rows
	require.NoError(t, db.seedCategories())
	require.NoError(t, db.DB.Model(&entities.Category{}).Count(&count).Error)
	assert.Equal(t, int64(len(defaultCategories)), count)
}

func TestNewDatabase_Ping(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.Ping(context.Background()))
}

func TestNewDatabase_RejectsUnknownDriver(t *testing.T) {
	_, err := NewDatabase(config.Database{Driver: "oracle"})
	assert.Error(t, err)
}

func TestNewDatabase_PostgresRequiresDSN(t *testing.T) {
	_, err := NewDatabase(config.Database{Driver: config.DatabaseDriverPostgres})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_DSN")
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "a.db?_journal_mode=WAL&_busy_timeout=5000", sqliteDSN("a.db"))
	assert.Equal(t, "file::memory:?cache=shared", sqliteDSN("file::memory:?cache=shared"))
}
