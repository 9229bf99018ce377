package shelf

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// maxSaveAttempts bounds the read-apply-write loop on version conflicts.
const maxSaveAttempts = 3

// EntryStore persists shelf entries. All reads are scoped by user id.
// Save is a versioned update returning database.ErrVersionConflict when the
// row changed since it was read.
type EntryStore interface {
	Create(ctx context.Context, entry *entities.ShelfEntry) error
	Get(ctx context.Context, userID, id uint) (*entities.ShelfEntry, error)
	FindByBook(ctx context.Context, userID, bookID uint) (*entities.ShelfEntry, error)
	List(ctx context.Context, userID uint, filter entities.ShelfFilter) ([]entities.ShelfEntry, error)
	Save(ctx context.Context, entry *entities.ShelfEntry) error
	Delete(ctx context.Context, userID, id uint) (int64, error)
	Stats(ctx context.Context, userID uint) (*entities.ShelfStats, error)
}

// Auditor records shelf mutations. Implementations must not block.
type Auditor interface {
	LogShelf(ctx context.Context, userID uint, eventType entities.AuditEventType, entry *entities.ShelfEntry, description string)
}

// Service implements shelf membership, reading status and re-read operations.
type Service struct {
	books    BookStore
	entries  EntryStore
	resolver *Resolver
	auditor  Auditor
	now      func() time.Time
}

// NewService creates a shelf service.
func NewService(books BookStore, entries EntryStore, resolver *Resolver) *Service {
	return &Service{
		books:    books,
		entries:  entries,
		resolver: resolver,
		now:      time.Now,
	}
}

// SetAuditor enables audit logging of mutations.
func (s *Service) SetAuditor(a Auditor) {
	s.auditor = a
}

// AddToShelf links an existing Book to the session's user with status unread.
// A second add of the same Book yields ErrAlreadyOnShelf.
func (s *Service) AddToShelf(ctx context.Context, session *Session, bookID uint) (*entities.ShelfEntry, error) {
	if err := session.require(); err != nil {
		return nil, err
	}

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrBookNotFound
		}
		return nil, persistenceError("get book", err)
	}

	entry := &entities.ShelfEntry{
		UserID:     session.UserID,
		BookID:     book.ID,
		Status:     entities.StatusUnread,
		ReReadLogs: []entities.ReadInterval{},
		Tags:       []string{},
		Version:    1,
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrAlreadyOnShelf
		}
		return nil, persistenceError("add to shelf", err)
	}
	entry.Book = *book

	s.audit(ctx, session, entities.AuditEventShelfAdd, entry, "Added "+book.Title)
	return entry, nil
}

// AddEdition resolves a catalog edition into a Book and adds it to the shelf.
func (s *Service) AddEdition(ctx context.Context, session *Session, edition catalog.Edition) (*entities.ShelfEntry, error) {
	if err := session.require(); err != nil {
		return nil, err
	}

	book, err := s.resolver.Resolve(ctx, edition)
	if err != nil {
		return nil, err
	}
	return s.AddToShelf(ctx, session, book.ID)
}

// RemoveFromShelf hard-deletes an entry. Callers have already confirmed.
func (s *Service) RemoveFromShelf(ctx context.Context, session *Session, entryID uint) error {
	if err := session.require(); err != nil {
		return err
	}

	entry, err := s.Get(ctx, session, entryID)
	if err != nil {
		return err
	}

	removed, err := s.entries.Delete(ctx, session.UserID, entryID)
	if err != nil {
		return persistenceError("remove from shelf", err)
	}
	if removed == 0 {
		return ErrNotFound
	}

	s.audit(ctx, session, entities.AuditEventShelfRemove, entry, "Removed "+entry.Book.Title)
	return nil
}

// Get returns one of the session user's entries with its Book.
func (s *Service) Get(ctx context.Context, session *Session, entryID uint) (*entities.ShelfEntry, error) {
	if err := session.require(); err != nil {
		return nil, err
	}

	entry, err := s.entries.Get(ctx, session.UserID, entryID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, persistenceError("get entry", err)
	}
	return entry, nil
}

// List returns the session user's shelf.
func (s *Service) List(ctx context.Context, session *Session, filter entities.ShelfFilter) ([]entities.ShelfEntry, error) {
	if err := session.require(); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	list, err := s.entries.List(ctx, session.UserID, filter)
	if err != nil {
		return nil, persistenceError("list shelf", err)
	}
	return list, nil
}

// Stats summarizes the session user's shelf.
func (s *Service) Stats(ctx context.Context, session *Session) (*entities.ShelfStats, error) {
	if err := session.require(); err != nil {
		return nil, err
	}

	stats, err := s.entries.Stats(ctx, session.UserID)
	if err != nil {
		return nil, persistenceError("shelf stats", err)
	}
	return stats, nil
}

// SetStatus moves an entry to a new reading status.
func (s *Service) SetStatus(ctx context.Context, session *Session, entryID uint, status entities.ReadingStatus) (*entities.ShelfEntry, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	var previous entities.ReadingStatus
	entry, err := s.mutate(ctx, session, entryID, func(e entities.ShelfEntry, now time.Time) (entities.ShelfEntry, error) {
		previous = e.Status
		return ApplyStatus(e, status, now)
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, session, entities.AuditEventStatusChange, entry,
		fmt.Sprintf("%s: %s -> %s", entry.Book.Title, previous, status))
	return entry, nil
}

// StartReread opens a new re-read pass on a completed entry.
func (s *Service) StartReread(ctx context.Context, session *Session, entryID uint) (*entities.ShelfEntry, error) {
	entry, err := s.mutate(ctx, session, entryID, ApplyStartReread)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, session, entities.AuditEventRereadStart, entry,
		fmt.Sprintf("Started re-read #%d of %s", entry.RereadCount(), entry.Book.Title))
	return entry, nil
}

// CompleteReread closes the open re-read pass. Without one it returns
// ErrNoActiveReread and nothing is written.
func (s *Service) CompleteReread(ctx context.Context, session *Session, entryID uint) (*entities.ShelfEntry, error) {
	entry, err := s.mutate(ctx, session, entryID, ApplyCompleteReread)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, session, entities.AuditEventRereadComplete, entry, "Finished re-reading "+entry.Book.Title)
	return entry, nil
}

// SetTags replaces the entry's tags with a trimmed, de-duplicated, sorted list.
func (s *Service) SetTags(ctx context.Context, session *Session, entryID uint, tags []string) (*entities.ShelfEntry, error) {
	normalized := NormalizeTags(tags)
	return s.mutate(ctx, session, entryID, func(e entities.ShelfEntry, _ time.Time) (entities.ShelfEntry, error) {
		e.Tags = normalized
		return e, nil
	})
}

// NormalizeTags lowercases, trims and de-duplicates tags. Empty tags are dropped.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

type transition func(entry entities.ShelfEntry, now time.Time) (entities.ShelfEntry, error)

// mutate reads the entry, applies a pure transition and writes the result in
// one versioned update. A version conflict re-reads and re-applies.
func (s *Service) mutate(ctx context.Context, session *Session, entryID uint, apply transition) (*entities.ShelfEntry, error) {
	if err := session.require(); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		current, err := s.Get(ctx, session, entryID)
		if err != nil {
			return nil, err
		}

		next, err := apply(*current, s.now())
		if err != nil {
			return nil, err
		}

		err = s.entries.Save(ctx, &next)
		if err == nil {
			return &next, nil
		}
		if !errors.Is(err, database.ErrVersionConflict) {
			return nil, persistenceError("save entry", err)
		}
		log.Printf("[SHELF] Version conflict on entry %d (attempt %d/%d)", entryID, attempt, maxSaveAttempts)
	}

	return nil, persistenceError("save entry", ErrConcurrentUpdate)
}

func (s *Service) audit(ctx context.Context, session *Session, eventType entities.AuditEventType, entry *entities.ShelfEntry, description string) {
	if s.auditor == nil {
		return
	}
	s.auditor.LogShelf(ctx, session.UserID, eventType, entry, description)
}
