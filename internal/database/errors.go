package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrDuplicate is returned by repositories when an insert hits a unique index.
	ErrDuplicate = errors.New("duplicate record")

	// ErrVersionConflict is returned by versioned updates that matched no row.
	ErrVersionConflict = errors.New("version conflict")
)

// IsUniqueViolation reports whether err comes from a unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicate) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsNotFound reports whether err is gorm's record-not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
