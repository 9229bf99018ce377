package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// defaultAuditRetentionDays applies when a task is enqueued without a window.
const defaultAuditRetentionDays = 90

// AuditEventCleaner deletes audit events older than a retention window.
type AuditEventCleaner interface {
	DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error)
}

// CleanupAuditEventsTask prunes the shelf history. The scheduler enqueues
// it nightly; admins can also run it on demand.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return queueConfig("cleanup_audit_events", 3, 5*time.Minute, 2*time.Minute)
}

func (t CleanupAuditEventsTask) retention() (int, time.Duration) {
	days := t.RetentionDays
	if days <= 0 {
		days = defaultAuditRetentionDays
	}
	return days, time.Duration(days) * 24 * time.Hour
}

func CleanupAuditEventsProcessor(cleaner AuditEventCleaner) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return errors.New("audit event cleaner not configured")
		}

		days, window := task.retention()
		deleted, err := cleaner.DeleteOldEvents(ctx, window)
		if err != nil {
			return fmt.Errorf("cleanup audit events: %w", err)
		}

		log.Printf("[TASK] pruned %d audit events older than %d days", deleted, days)
		return nil
	}
}

func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner))
}
