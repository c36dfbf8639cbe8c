// Package scheduler runs periodic maintenance on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/mrlokans/ebooklib/internal/config"
	"github.com/mrlokans/ebooklib/internal/tasks"
)

// Enqueuer persists a task for the worker pool.
type Enqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// MaintenanceScheduler enqueues activity and audit cleanup on a cron schedule
type MaintenanceScheduler struct {
	queue Enqueuer
	cfg   config.Activity

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewMaintenanceScheduler creates a new scheduler instance
func NewMaintenanceScheduler(queue Enqueuer, cfg config.Activity) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		queue: queue,
		cfg:   cfg,
		cron:  cron.New(cron.WithParser(parser)),
	}
}

// Start begins the scheduler. An empty schedule disables it.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.cfg.CleanupSchedule == "" {
		log.Info("Maintenance scheduler: disabled")
		return nil
	}
	if err := ValidateSchedule(s.cfg.CleanupSchedule); err != nil {
		return err
	}

	entryID, err := s.cron.AddFunc(s.cfg.CleanupSchedule, func() {
		s.runCleanup(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.WithFields(log.Fields{
		"schedule": s.cfg.CleanupSchedule,
		"next_run": s.cron.Entry(entryID).Next,
	}).Info("Maintenance scheduler: started")

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running job and stops the scheduler
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning = false
	s.cancelFunc = nil

	log.Info("Maintenance scheduler: stopped")
}

// RunNow enqueues the cleanup tasks immediately
func (s *MaintenanceScheduler) RunNow(ctx context.Context) error {
	return s.runCleanup(ctx)
}

// IsRunning returns whether the scheduler is active
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next cleanup will be enqueued
func (s *MaintenanceScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	t := s.cron.Entry(s.entryID).Next
	return &t
}

func (s *MaintenanceScheduler) runCleanup(ctx context.Context) error {
	var jobs []backlite.Task
	if s.cfg.RetentionDays > 0 {
		jobs = append(jobs, tasks.CleanupActivityTask{RetentionDays: s.cfg.RetentionDays})
	}
	if s.cfg.AuditRetentionDays > 0 {
		jobs = append(jobs, tasks.PurgeAuditTask{RetentionDays: s.cfg.AuditRetentionDays})
	}

	for _, job := range jobs {
		if _, err := s.queue.Enqueue(ctx, job); err != nil {
			log.WithError(err).WithField("queue", job.Config().Name).Error("Maintenance scheduler: enqueue failed")
			return err
		}
	}
	return nil
}
