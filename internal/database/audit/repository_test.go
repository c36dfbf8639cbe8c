package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/ebooklib/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.AuditEntry{}))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func id(v uint) *uint { return &v }

func TestRepository_Append(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	entry := &entities.AuditEntry{
		ActorID:   id(1),
		Category:  entities.AuditCatalog,
		Action:    "create",
		EbookID:   id(9),
		Summary:   "Walden",
		Succeeded: true,
	}
	require.NoError(t, repo.Append(entry))
	assert.NotZero(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestRepository_List(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	for i := 0; i < 15; i++ {
		entry := &entities.AuditEntry{
			ActorID:   id(uint(1 + i%2)),
			Category:  entities.AuditCatalog,
			Action:    "update",
			EbookID:   id(uint(100 + i%5)),
			Succeeded: true,
			CreatedAt: time.Now().Add(time.Duration(-i) * time.Hour),
		}
		if i%3 == 0 {
			entry.Category = entities.AuditAuth
			entry.EbookID = nil
		}
		require.NoError(t, repo.Append(entry))
	}

	entries, total, err := repo.List(Filter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	assert.Len(t, entries, 10)
	assert.True(t, entries[0].CreatedAt.After(entries[1].CreatedAt))

	entries, total, err = repo.List(Filter{Category: entities.AuditAuth}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, entries, 5)

	_, total, err = repo.List(Filter{ActorID: 2}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)

	// i%5 == 1 gives i in {1, 6, 11}; 6 is an auth entry without an ebook.
	entries, total, err = repo.List(Filter{EbookID: 101}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, e := range entries {
		assert.Equal(t, uint(101), *e.EbookID)
	}

	entries, total, err = repo.List(Filter{}, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
	assert.Len(t, entries, 5)
}

func TestRepository_Purge(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	old := time.Now().Add(-48 * time.Hour)
	for i := 0; i < purgeBatch+3; i++ {
		require.NoError(t, repo.Append(&entities.AuditEntry{Action: "old", CreatedAt: old}))
	}
	require.NoError(t, repo.Append(&entities.AuditEntry{Action: "new"}))

	removed, err := repo.Purge(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(purgeBatch+3), removed, "purges across batches")

	entries, total, err := repo.List(Filter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "new", entries[0].Action)
}
