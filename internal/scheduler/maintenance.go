package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookshelf/internal/tasks"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule validates a 5-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NextRunTime calculates when a schedule fires next after from.
func NextRunTime(schedule string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}

// MaintenanceConfig controls what the scheduler enqueues.
type MaintenanceConfig struct {
	Schedule           string
	AuditRetentionDays int
	WarmCovers         bool
}

// MaintenanceScheduler periodically enqueues audit cleanup and cover backfill tasks.
type MaintenanceScheduler struct {
	queue tasks.Enqueuer
	cfg   MaintenanceConfig

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
}

// NewMaintenanceScheduler creates a new scheduler instance.
func NewMaintenanceScheduler(queue tasks.Enqueuer, cfg MaintenanceConfig) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		queue: queue,
		cfg:   cfg,
		cron:  cron.New(cron.WithParser(parser)),
	}
}

// Start registers the maintenance job and starts cron. An empty schedule
// disables the scheduler.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.cfg.Schedule == "" {
		log.Printf("[SCHEDULER] Maintenance: disabled")
		return nil
	}

	if err := ValidateCronSchedule(s.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.RunNow()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	next, _ := NextRunTime(s.cfg.Schedule, time.Now())
	log.Printf("[SCHEDULER] Maintenance: started with schedule '%s'. Next run: %v", s.cfg.Schedule, next)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running job to finish.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	s.isRunning = false

	log.Printf("[SCHEDULER] Maintenance: stopped")
}

// IsRunning returns whether the scheduler is active.
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the maintenance job fires next, or nil when stopped.
func (s *MaintenanceScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

// RunNow enqueues the maintenance tasks immediately.
func (s *MaintenanceScheduler) RunNow() {
	batch := []backlite.Task{tasks.CleanupAuditEventsTask{RetentionDays: s.cfg.AuditRetentionDays}}
	if s.cfg.WarmCovers {
		batch = append(batch, tasks.WarmAllCoversTask{})
	}

	ids, err := s.queue.Add(batch...).Save()
	if err != nil {
		log.Printf("[SCHEDULER] Maintenance: failed to enqueue tasks: %v", err)
		return
	}
	log.Printf("[SCHEDULER] Maintenance: enqueued %d tasks", len(ids))
}
