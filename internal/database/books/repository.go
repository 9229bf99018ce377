// Package books provides database operations for the shared Book catalog.
//
// Book rows are keyed by the Open Library edition id and are never updated
// after insertion.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.FindByEditionKey(ctx, "OL1M")
package books

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByEditionKey returns gorm.ErrRecordNotFound when no book has the key.
func (r *Repository) FindByEditionKey(ctx context.Context, key string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).Where("ol_edition_key = ?", key).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByID retrieves a book by ID.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Create inserts a new book. A clash on the edition key yields database.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, book *entities.Book) error {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("book %s: %w", book.OLEditionKey, database.ErrDuplicate)
		}
		return err
	}
	return nil
}

// ListWithCovers returns books that have a remote cover URL, used by the cover warmer.
func (r *Repository) ListWithCovers(ctx context.Context, limit int) ([]entities.Book, error) {
	var books []entities.Book
	query := r.db.WithContext(ctx).Where("cover_url IS NOT NULL AND cover_url != ''").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&books).Error
	return books, err
}
