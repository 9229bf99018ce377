// Package entries provides database operations for per-user shelf entries.
//
// Every query is scoped by user id. Updates are versioned: Save only
// succeeds when the row still carries the version the caller read.
//
// # Usage
//
//	repo := entries.NewRepository(db)
//	entry, err := repo.Get(ctx, userID, entryID)
//	entry.Status = entities.StatusReading
//	err = repo.Save(ctx, entry)
package entries

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// Repository handles all shelf entry database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new shelf entries repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new entry. A second entry for the same (user, book)
// yields database.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, entry *entities.ShelfEntry) error {
	if entry.Version == 0 {
		entry.Version = 1
	}
	if entry.ReReadLogs == nil {
		entry.ReReadLogs = []entities.ReadInterval{}
	}
	if entry.Tags == nil {
		entry.Tags = []string{}
	}

	if err := r.db.WithContext(ctx).Omit("Book").Create(entry).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("user %d book %d: %w", entry.UserID, entry.BookID, database.ErrDuplicate)
		}
		return err
	}
	return nil
}

// Get returns the entry with its Book, or gorm.ErrRecordNotFound when the
// entry does not exist or belongs to another user.
func (r *Repository) Get(ctx context.Context, userID, id uint) (*entities.ShelfEntry, error) {
	var entry entities.ShelfEntry
	err := r.db.WithContext(ctx).Preload("Book").
		Where("id = ? AND user_id = ?", id, userID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindByBook returns the user's entry for a book.
func (r *Repository) FindByBook(ctx context.Context, userID, bookID uint) (*entities.ShelfEntry, error) {
	var entry entities.ShelfEntry
	err := r.db.WithContext(ctx).Preload("Book").
		Where("user_id = ? AND book_id = ?", userID, bookID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns the user's entries, newest first. Filter.Recent orders by
// last update instead, as the dashboard does.
func (r *Repository) List(ctx context.Context, userID uint, filter entities.ShelfFilter) ([]entities.ShelfEntry, error) {
	var list []entities.ShelfEntry

	query := r.db.WithContext(ctx).Preload("Book").Where("user_id = ?", userID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Recent {
		query = query.Order("updated_at DESC")
	} else {
		query = query.Order("created_at DESC")
	}
	query = query.Order("id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	err := query.Find(&list).Error
	return list, err
}

// Save writes status, finished_at, re-read log and tags in one statement,
// guarded by the version the entry was read with. On success entry.Version
// is advanced. A stale or missing row yields database.ErrVersionConflict.
func (r *Repository) Save(ctx context.Context, entry *entities.ShelfEntry) error {
	next := *entry
	next.Version = entry.Version + 1
	next.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).Model(&next).
		Where("user_id = ? AND version = ?", entry.UserID, entry.Version).
		Select("status", "finished_at", "re_read_logs", "tags", "version", "updated_at").
		Updates(&next)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.ErrVersionConflict
	}

	entry.Version = next.Version
	entry.UpdatedAt = next.UpdatedAt
	return nil
}

// Delete hard-deletes the entry. Returns the number of rows removed, which
// is zero when the entry does not belong to the user.
func (r *Repository) Delete(ctx context.Context, userID, id uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&entities.ShelfEntry{})
	return result.RowsAffected, result.Error
}

type statusCount struct {
	Status entities.ReadingStatus
	Count  int64
}

// Stats counts the user's entries per status and sums re-read passes.
func (r *Repository) Stats(ctx context.Context, userID uint) (*entities.ShelfStats, error) {
	var counts []statusCount
	err := r.db.WithContext(ctx).Model(&entities.ShelfEntry{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	stats := &entities.ShelfStats{}
	for _, c := range counts {
		stats.Total += c.Count
		switch c.Status {
		case entities.StatusUnread:
			stats.Unread = c.Count
		case entities.StatusReading:
			stats.Reading = c.Count
		case entities.StatusCompleted:
			stats.Completed = c.Count
		}
	}

	var rereads int64
	err = r.db.WithContext(ctx).Model(&entities.ShelfEntry{}).
		Select("COALESCE(SUM(json_array_length(re_read_logs)), 0)").
		Where("user_id = ? AND re_read_logs IS NOT NULL AND re_read_logs != 'null'", userID).
		Scan(&rereads).Error
	if err != nil {
		return nil, err
	}
	stats.Rereads = rereads

	return stats, nil
}
