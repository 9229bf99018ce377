package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	auditRepo "github.com/mrlokans/bookshelf/internal/database/audit"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/requestid"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	repo := auditRepo.NewRepository(db)
	svc := NewService(repo)

	return svc, db
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := requestid.WithID(context.Background(), "req-1")

	event := &entities.AuditEvent{
		UserID:      1,
		EventType:   entities.AuditEventShelfAdd,
		Action:      "shelf_add",
		Description: "Added Dune",
		Status:      entities.AuditStatusSuccess,
	}

	err := svc.Log(ctx, event)
	require.NoError(t, err)

	var saved entities.AuditEvent
	err = db.First(&saved, event.ID).Error
	require.NoError(t, err)
	assert.Equal(t, "shelf_add", saved.Action)
	assert.Equal(t, "req-1", saved.RequestID)
}

func TestService_LogShelf(t *testing.T) {
	svc, db := setupTestService(t)

	finished := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	entry := &entities.ShelfEntry{
		ID:         10,
		BookID:     3,
		Status:     entities.StatusCompleted,
		FinishedAt: &finished,
		Version:    4,
		ReReadLogs: []entities.ReadInterval{{Start: finished, End: &finished}},
	}

	// A cancelled request context must not lose the event
	ctx, cancel := context.WithCancel(context.Background())
	svc.LogShelf(ctx, 1, entities.AuditEventRereadComplete, entry, "Finished re-reading Dune")
	cancel()
	svc.Wait()

	var event entities.AuditEvent
	require.NoError(t, db.Where("event_type = ?", entities.AuditEventRereadComplete).First(&event).Error)
	require.NotNil(t, event.EntryID)
	assert.Equal(t, uint(10), *event.EntryID)
	require.NotNil(t, event.BookID)
	assert.Equal(t, uint(3), *event.BookID)
	assert.JSONEq(t, `{"status":"completed","version":4,"reread_count":1,"finished_at":"2024-02-01T00:00:00Z"}`, event.Metadata)
	assert.Equal(t, entities.AuditStatusSuccess, event.Status)
}

func TestService_LogExport(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()

	t.Run("successful export", func(t *testing.T) {
		svc.LogExport(ctx, 1, "csv", 12, nil)
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ?", "csv_export").First(&event).Error)
		assert.Equal(t, entities.AuditStatusSuccess, event.Status)
		assert.JSONEq(t, `{"entries":12}`, event.Metadata)
	})

	t.Run("failed export", func(t *testing.T) {
		svc.LogExport(ctx, 1, "json", 0, errors.New("write failed"))
		svc.Wait()

		var event entities.AuditEvent
		require.NoError(t, db.Where("action = ?", "json_export").First(&event).Error)
		assert.Equal(t, entities.AuditStatusFailed, event.Status)
		assert.Equal(t, "write failed", event.ErrorMsg)
	})
}

func TestService_LogAuth(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogAuth(context.Background(), 2, "login", "10.0.0.1", false)
	svc.Wait()

	var event entities.AuditEvent
	require.NoError(t, db.Where("event_type = ?", entities.AuditEventAuth).First(&event).Error)
	assert.Equal(t, "login", event.Action)
	assert.Equal(t, entities.AuditStatusFailed, event.Status)
	assert.Contains(t, event.Description, "10.0.0.1")
}

func TestService_GetEventsAndHistory(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	entry := &entities.ShelfEntry{ID: 5, BookID: 1, Status: entities.StatusUnread}
	svc.LogShelf(ctx, 1, entities.AuditEventShelfAdd, entry, "Added")
	svc.Wait()
	entry.Status = entities.StatusReading
	svc.LogShelf(ctx, 1, entities.AuditEventStatusChange, entry, "Status")
	svc.Wait()
	svc.LogExport(ctx, 1, "markdown", 1, nil)
	svc.Wait()

	events, total, err := svc.GetEvents(ctx, 1, "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, events, 3)

	exports, total, err := svc.GetEvents(ctx, 1, entities.AuditEventExport, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "markdown_export", exports[0].Action)

	history, err := svc.History(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entities.AuditEventShelfAdd, history[0].EventType)
	assert.Equal(t, entities.AuditEventStatusChange, history[1].EventType)
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Log(ctx, &entities.AuditEvent{UserID: 1, Action: "old", CreatedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, svc.Log(ctx, &entities.AuditEvent{UserID: 1, Action: "new"}))

	deleted, err := svc.DeleteOldEvents(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []entities.AuditEvent
	db.Find(&remaining)
	assert.Len(t, remaining, 1)
	assert.Equal(t, "new", remaining[0].Action)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10c", 10, "exactly10c"},
		{"this is a very long string", 10, "this is..."},
		{"", 5, ""},
	}

	for _, tc := range tests {
		result := truncate(tc.input, tc.maxLen)
		assert.Equal(t, tc.expected, result)
	}
}
