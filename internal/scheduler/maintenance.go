// Package scheduler runs periodic housekeeping jobs.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/goodreads/internal/config"
	"github.com/mrlokans/goodreads/internal/tasks"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule checks a five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// NextRunTime returns when schedule fires next after from.
func NextRunTime(schedule string, from time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

// CleanupDispatcher starts an audit log cleanup.
type CleanupDispatcher interface {
	DispatchAuditCleanup(ctx context.Context, retentionDays int) error
}

// QueueDispatcher hands the cleanup to the background task queue.
type QueueDispatcher struct {
	client *tasks.Client
}

func NewQueueDispatcher(client *tasks.Client) *QueueDispatcher {
	return &QueueDispatcher{client: client}
}

func (d *QueueDispatcher) DispatchAuditCleanup(ctx context.Context, retentionDays int) error {
	_, err := d.client.EnqueueAuditCleanup(ctx, retentionDays)
	return err
}

// InlineDispatcher runs the cleanup on the scheduler goroutine. Used when the
// task queue is disabled.
type InlineDispatcher struct {
	cleaner tasks.AuditEventCleaner
}

func NewInlineDispatcher(cleaner tasks.AuditEventCleaner) *InlineDispatcher {
	return &InlineDispatcher{cleaner: cleaner}
}

func (d *InlineDispatcher) DispatchAuditCleanup(ctx context.Context, retentionDays int) error {
	return tasks.CleanupAuditEventsProcessor(d.cleaner)(ctx, tasks.CleanupAuditEventsTask{RetentionDays: retentionDays})
}

// MaintenanceScheduler periodically prunes the audit log.
type MaintenanceScheduler struct {
	cfg           config.Maintenance
	retentionDays int
	dispatcher    CleanupDispatcher

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	lastRunAt *time.Time
	lastErr   error
}

// NewMaintenanceScheduler creates a new scheduler instance
func NewMaintenanceScheduler(cfg config.Maintenance, audit config.Audit, dispatcher CleanupDispatcher) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		cfg:           cfg,
		retentionDays: audit.RetentionDays,
		dispatcher:    dispatcher,
		cron:          cron.New(cron.WithParser(cronParser)),
	}
}

// Start begins the scheduler if maintenance is enabled. It stops by itself
// when ctx is canceled.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.Enabled {
		log.Printf("[SCHEDULER] Maintenance: disabled")
		return nil
	}

	if err := ValidateCronSchedule(s.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.RunNow(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := NextRunTime(s.cfg.Schedule, time.Now())
	log.Printf("[SCHEDULER] Maintenance: started with schedule '%s'. Next run: %v", s.cfg.Schedule, nextRun)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	// A running job takes s.mu when it finishes, so wait unlocked.
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)

	log.Printf("[SCHEDULER] Maintenance: stopped")
}

// RunNow dispatches the maintenance jobs immediately.
func (s *MaintenanceScheduler) RunNow(ctx context.Context) error {
	err := s.dispatcher.DispatchAuditCleanup(ctx, s.retentionDays)
	if err != nil {
		log.Printf("[SCHEDULER] Maintenance: audit cleanup failed: %v", err)
	}

	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.lastErr = err
	s.mu.Unlock()
	return err
}

// IsRunning returns whether the scheduler is active
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// LastRun returns when the jobs last ran and their error, if any.
func (s *MaintenanceScheduler) LastRun() (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRunAt, s.lastErr
}

// GetNextRunTime returns when the next run will occur
func (s *MaintenanceScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}
