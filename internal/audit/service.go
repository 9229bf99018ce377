package audit

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/bookshelf/internal/database/audit"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/requestid"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	if event.RequestID == "" {
		event.RequestID = requestid.FromContext(ctx)
	}
	return s.repo.LogEvent(ctx, event)
}

// LogAsync records an audit event in the background (non-blocking).
// The write outlives the request that triggered it.
func (s *Service) LogAsync(ctx context.Context, event *entities.AuditEvent) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Log(ctx, event); err != nil {
			log.Printf("[AUDIT] Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until every pending LogAsync write has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogShelf records a shelf mutation along with the entry's resulting state.
func (s *Service) LogShelf(ctx context.Context, userID uint, eventType entities.AuditEventType, entry *entities.ShelfEntry, description string) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   eventType,
		Action:      string(eventType),
		Description: truncate(description, 500),
		Status:      entities.AuditStatusSuccess,
	}

	if entry != nil {
		entryID, bookID := entry.ID, entry.BookID
		event.EntryID = &entryID
		event.BookID = &bookID

		metadata := map[string]any{
			"status":       entry.Status,
			"version":      entry.Version,
			"reread_count": entry.RereadCount(),
		}
		if entry.FinishedAt != nil {
			metadata["finished_at"] = entry.FinishedAt.UTC().Format(time.RFC3339)
		}
		if mdBytes, e := json.Marshal(metadata); e == nil {
			event.Metadata = string(mdBytes)
		}
	}

	s.LogAsync(ctx, event)
}

// LogExport records a shelf export.
func (s *Service) LogExport(ctx context.Context, userID uint, format string, entries int, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventExport,
		Action:      format + "_export",
		Description: "Exported shelf",
		Status:      entities.AuditStatusSuccess,
	}

	if mdBytes, e := json.Marshal(map[string]any{"entries": entries}); e == nil {
		event.Metadata = string(mdBytes)
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(ctx, event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(ctx context.Context, userID uint, action, ipAddr string, success bool) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventAuth,
		Action:      action,
		Description: "from " + ipAddr,
		Status:      entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(ctx, event)
}

// GetEvents retrieves paginated audit events. An empty eventType matches all.
func (s *Service) GetEvents(ctx context.Context, userID uint, eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(ctx, userID, eventType, limit, offset)
}

// History returns every recorded event for one shelf entry, oldest first.
func (s *Service) History(ctx context.Context, userID, entryID uint) ([]entities.AuditEvent, error) {
	return s.repo.GetEventsForEntry(ctx, userID, entryID)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(ctx, cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
