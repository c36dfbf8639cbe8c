package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/ebooklib/internal/storage/providers/local"
)

func TestTaskQueueConfigs(t *testing.T) {
	assert.Equal(t, RemoveFilesQueue, RemoveFilesTask{}.Config().Name)
	assert.Equal(t, 5, RemoveFilesTask{}.Config().MaxAttempts)
	assert.Equal(t, CleanupActivityQueue, CleanupActivityTask{}.Config().Name)
	assert.Equal(t, PurgeAuditQueue, PurgeAuditTask{}.Config().Name)
	assert.Equal(t, 3, PurgeAuditTask{}.Config().MaxAttempts)
	assert.NotNil(t, CleanupActivityTask{}.Config().Retention)
}

func TestRemoveFilesProcessor(t *testing.T) {
	ctx := context.Background()
	store, err := local.NewClient(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Upload(ctx, "ebooks/a.pdf", strings.NewReader("x"), ""))
	require.NoError(t, store.Upload(ctx, "covers/a.png", strings.NewReader("y"), ""))

	err = RemoveFilesProcessor(store)(ctx, RemoveFilesTask{Keys: []string{"ebooks/a.pdf", "covers/a.png", "covers/missing.png"}})
	require.NoError(t, err)

	for _, key := range []string{"ebooks/a.pdf", "covers/a.png"} {
		exists, err := store.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists, key)
	}
}

func TestRemoveFilesProcessor_NoStore(t *testing.T) {
	err := RemoveFilesProcessor(nil)(context.Background(), RemoveFilesTask{Keys: []string{"a"}})
	assert.Error(t, err)
}

func TestQueueRemover_RemovesThroughWorkers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := local.NewClient(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Upload(ctx, "ebooks/b.pdf", strings.NewReader("x"), ""))

	client := setupClient(t)
	client.Register(NewRemoveFilesQueue(store))
	go client.Start(ctx)
	defer client.Stop(context.Background())

	require.NoError(t, NewQueueRemover(client).Remove(ctx, "ebooks/b.pdf", ""))

	assert.Eventually(t, func() bool {
		exists, err := store.Exists(ctx, "ebooks/b.pdf")
		return err == nil && !exists
	}, 5*time.Second, 50*time.Millisecond)
}

func TestQueueRemover_NothingToRemove(t *testing.T) {
	client := setupClient(t)
	recorder := &countingRecorder{}
	client.SetRecorder(recorder)

	require.NoError(t, NewQueueRemover(client).Remove(context.Background(), "", ""))
	assert.Empty(t, recorder.queues)
}

type fakeActivityCleaner struct {
	cutoff  time.Time
	deleted int64
	err     error
	calls   int
}

func (f *fakeActivityCleaner) DeleteOlderThan(cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return f.deleted, f.err
}

type fakeMaintenanceLog struct {
	action  string
	removed int64
	err     error
}

func (f *fakeMaintenanceLog) LogMaintenance(action string, removed int64, err error) {
	f.action, f.removed, f.err = action, removed, err
}

func TestCleanupActivity(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	cleaner := &fakeActivityCleaner{deleted: 7}

	deleted, err := CleanupActivity(cleaner, 30, now)
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
	assert.Equal(t, time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC), cleaner.cutoff)
}

func TestCleanupActivity_ZeroRetentionKeepsEverything(t *testing.T) {
	cleaner := &fakeActivityCleaner{}

	deleted, err := CleanupActivity(cleaner, 0, time.Now())
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Zero(t, cleaner.calls)
}

func TestCleanupActivityProcessor_LogsOutcome(t *testing.T) {
	cleaner := &fakeActivityCleaner{deleted: 3}
	audit := &fakeMaintenanceLog{}

	require.NoError(t, CleanupActivityProcessor(cleaner, audit)(context.Background(), CleanupActivityTask{RetentionDays: 10}))
	assert.Equal(t, "cleanup_activity", audit.action)
	assert.Equal(t, int64(3), audit.removed)

	cleaner.err = errors.New("disk full")
	err := CleanupActivityProcessor(cleaner, audit)(context.Background(), CleanupActivityTask{RetentionDays: 10})
	require.Error(t, err)
	assert.Error(t, audit.err)
}

type fakeAuditPurger struct {
	cutoff  time.Time
	removed int64
	err     error
}

func (f *fakeAuditPurger) Purge(cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.removed, f.err
}

func TestPurgeAuditProcessor(t *testing.T) {
	purger := &fakeAuditPurger{removed: 12}
	audit := &fakeMaintenanceLog{}

	require.NoError(t, PurgeAuditProcessor(purger, audit)(context.Background(), PurgeAuditTask{RetentionDays: 2}))
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -2), purger.cutoff, time.Minute)
	assert.Equal(t, PurgeAuditQueue, audit.action)
	assert.Equal(t, int64(12), audit.removed)
	assert.NoError(t, audit.err)

	purger.err = errors.New("database is locked")
	err := PurgeAuditProcessor(purger, audit)(context.Background(), PurgeAuditTask{RetentionDays: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purge audit log")
	assert.Error(t, audit.err)
}

func TestPurgeAuditProcessor_ZeroRetentionKeepsEverything(t *testing.T) {
	purger := &fakeAuditPurger{}
	audit := &fakeMaintenanceLog{}

	require.NoError(t, PurgeAuditProcessor(purger, audit)(context.Background(), PurgeAuditTask{}))
	assert.True(t, purger.cutoff.IsZero())
	assert.Empty(t, audit.action)
}

func TestPurgeAuditProcessor_NilPurger(t *testing.T) {
	assert.Error(t, PurgeAuditProcessor(nil, nil)(context.Background(), PurgeAuditTask{RetentionDays: 1}))
}
