package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	log "github.com/sirupsen/logrus"
)

const PurgeAuditQueue = "purge_audit_log"

// AuditPurger deletes audit entries created before a cutoff.
type AuditPurger interface {
	Purge(cutoff time.Time) (int64, error)
}

// PurgeAuditTask trims the audit log to the last RetentionDays days.
type PurgeAuditTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t PurgeAuditTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        PurgeAuditQueue,
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration: 7 * 24 * time.Hour,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PurgeAuditProcessor purges old entries and records the run in the audit log.
func PurgeAuditProcessor(purger AuditPurger, audit MaintenanceLogger) backlite.QueueProcessor[PurgeAuditTask] {
	return func(ctx context.Context, task PurgeAuditTask) error {
		if purger == nil {
			return errors.New("audit purger not configured")
		}
		if task.RetentionDays <= 0 {
			return nil
		}

		removed, err := purger.Purge(retentionCutoff(time.Now(), task.RetentionDays))
		if audit != nil {
			audit.LogMaintenance(PurgeAuditQueue, removed, err)
		}
		if err != nil {
			return fmt.Errorf("purge audit log: %w", err)
		}

		log.WithFields(log.Fields{
			"removed":        removed,
			"retention_days": task.RetentionDays,
		}).Info("Purged audit log")
		return nil
	}
}

func NewPurgeAuditQueue(purger AuditPurger, audit MaintenanceLogger) backlite.Queue {
	return backlite.NewQueue(PurgeAuditProcessor(purger, audit))
}
