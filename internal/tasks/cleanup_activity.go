package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	log "github.com/sirupsen/logrus"
)

const CleanupActivityQueue = "cleanup_activity_log"

// ActivityCleaner deletes activity rows older than a cutoff.
type ActivityCleaner interface {
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// MaintenanceLogger records the outcome of a cleanup run.
type MaintenanceLogger interface {
	LogMaintenance(action string, removed int64, err error)
}

// CleanupActivityTask removes download/read history older than the retention period.
type CleanupActivityTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for activity cleanup tasks.
func (t CleanupActivityTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        CleanupActivityQueue,
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupActivity deletes activity older than retentionDays. A non-positive
// retention keeps everything.
func CleanupActivity(cleaner ActivityCleaner, retentionDays int, now time.Time) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	deleted, err := cleaner.DeleteOlderThan(retentionCutoff(now, retentionDays))
	if err != nil {
		return 0, fmt.Errorf("cleanup activity log: %w", err)
	}
	return deleted, nil
}

// retentionCutoff is the instant before which rows fall outside a retention of days.
func retentionCutoff(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}

// CleanupActivityProcessor creates a processor function for CleanupActivityTask.
func CleanupActivityProcessor(cleaner ActivityCleaner, audit MaintenanceLogger) backlite.QueueProcessor[CleanupActivityTask] {
	return func(ctx context.Context, task CleanupActivityTask) error {
		if cleaner == nil {
			return fmt.Errorf("activity cleaner not configured")
		}

		deleted, err := CleanupActivity(cleaner, task.RetentionDays, time.Now())
		if audit != nil {
			audit.LogMaintenance("cleanup_activity", deleted, err)
		}
		if err != nil {
			return err
		}

		log.WithFields(log.Fields{
			"deleted":        deleted,
			"retention_days": task.RetentionDays,
		}).Info("Cleaned up activity log")
		return nil
	}
}

// NewCleanupActivityQueue creates a backlite queue for activity cleanup tasks.
func NewCleanupActivityQueue(cleaner ActivityCleaner, audit MaintenanceLogger) backlite.Queue {
	return backlite.NewQueue(CleanupActivityProcessor(cleaner, audit))
}
