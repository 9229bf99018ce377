package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/entities"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	return db
}

func uintPtr(v uint) *uint { return &v }

func TestRepository_LogEvent(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	event := &entities.AuditEvent{
		UserID:      1,
		EventType:   entities.AuditEventShelfAdd,
		Action:      "shelf_add",
		Description: "Added Dune",
		Status:      entities.AuditStatusSuccess,
	}

	err := repo.LogEvent(context.Background(), event)
	require.NoError(t, err)
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRepository_GetEvents(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		eventType := entities.AuditEventStatusChange
		if i%5 == 0 {
			eventType = entities.AuditEventShelfAdd
		}
		event := &entities.AuditEvent{
			UserID:    1,
			EventType: eventType,
			Status:    entities.AuditStatusSuccess,
			CreatedAt: time.Now().Add(time.Duration(-i) * time.Hour),
		}
		require.NoError(t, repo.LogEvent(ctx, event))
	}
	require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{UserID: 2, EventType: entities.AuditEventShelfAdd}))

	t.Run("pagination", func(t *testing.T) {
		events, total, err := repo.GetEvents(ctx, 1, "", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(15), total)
		assert.Len(t, events, 10)
		assert.True(t, events[0].CreatedAt.After(events[1].CreatedAt))

		events, _, err = repo.GetEvents(ctx, 1, "", 10, 10)
		require.NoError(t, err)
		assert.Len(t, events, 5)
	})

	t.Run("filter by type", func(t *testing.T) {
		events, total, err := repo.GetEvents(ctx, 1, entities.AuditEventShelfAdd, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, events, 3)
	})
}

func TestRepository_GetEventsForEntry(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, eventType := range []entities.AuditEventType{entities.AuditEventShelfAdd, entities.AuditEventStatusChange} {
		require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{
			UserID: 1, EventType: eventType, EntryID: uintPtr(5), CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{UserID: 1, EventType: entities.AuditEventShelfAdd, EntryID: uintPtr(6)}))

	events, err := repo.GetEventsForEntry(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, entities.AuditEventShelfAdd, events[0].EventType)

	none, err := repo.GetEventsForEntry(ctx, 2, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRepository_DeleteOldEvents(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{UserID: 1, CreatedAt: time.Now().Add(-100 * 24 * time.Hour)}))
	require.NoError(t, repo.LogEvent(ctx, &entities.AuditEvent{UserID: 1, CreatedAt: time.Now()}))

	deleted, err := repo.DeleteOldEvents(ctx, time.Now().Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, total, err := repo.GetEvents(ctx, 1, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
