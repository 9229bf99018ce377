// Package users provides database operations for user accounts.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	owner, err := repo.GetOrCreateOwner(ctx, "owner")
package users

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a user. Username or email clashes yield database.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, user *entities.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.Username, database.ErrDuplicate)
		}
		return err
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByLogin retrieves a user by username or email.
func (r *Repository) GetByLogin(ctx context.Context, login string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Where("username = ? OR email = ?", login, login).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByTokenHash retrieves a user by the SHA-256 hash of their API token.
func (r *Repository) GetByTokenHash(ctx context.Context, tokenHash string) (*entities.User, error) {
	if tokenHash == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user entities.User
	err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Exists reports whether a user with the username or email is registered.
func (r *Repository) Exists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

// UpdateFields applies a partial update and returns the affected row count.
func (r *Repository) UpdateFields(ctx context.Context, id uint, fields map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entities.User{}).Where("id = ?", id).Updates(fields)
	return result.RowsAffected, result.Error
}

// Count returns the number of registered users.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.User{}).Count(&count).Error
	return count, err
}

// GetOrCreateOwner returns the single local account used when
// authentication is disabled, creating it on first use.
func (r *Repository) GetOrCreateOwner(ctx context.Context, username string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = entities.User{
		Username: username,
		Email:    username + "@localhost",
		Role:     entities.UserRoleAdmin,
	}
	if err := r.Create(ctx, &user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			// Created by a concurrent request
			return r.GetByLogin(ctx, username)
		}
		return nil, err
	}
	return &user, nil
}
