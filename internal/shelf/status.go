package shelf

import (
	"time"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// ParseStatus validates a status received from a caller.
func ParseStatus(s string) (entities.ReadingStatus, error) {
	status := entities.ReadingStatus(s)
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// ApplyStatus returns a copy of entry moved to next. Every edge is allowed.
//
//   - to completed: FinishedAt = now, unless the entry was already completed
//   - to unread: FinishedAt is cleared
//   - to reading: no timestamp change
//
// The re-read log is left alone.
func ApplyStatus(entry entities.ShelfEntry, next entities.ReadingStatus, now time.Time) (entities.ShelfEntry, error) {
	if !next.Valid() {
		return entry, ErrInvalidStatus
	}

	switch next {
	case entities.StatusCompleted:
		if entry.Status != entities.StatusCompleted {
			entry.FinishedAt = &now
		}
	case entities.StatusUnread:
		entry.FinishedAt = nil
	}
	entry.Status = next

	return entry, nil
}
