package exporters

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/shelf"
)

// ShelfLister reads a session user's shelf.
type ShelfLister interface {
	List(ctx context.Context, session *shelf.Session, filter entities.ShelfFilter) ([]entities.ShelfEntry, error)
}

// ExportAuditor records export attempts.
type ExportAuditor interface {
	LogExport(ctx context.Context, userID uint, format string, entries int, err error)
}

// Service exports the whole shelf of the session user.
type Service struct {
	shelf   ShelfLister
	auditor ExportAuditor
	now     func() time.Time
}

func NewService(lister ShelfLister) *Service {
	return &Service{shelf: lister, now: time.Now}
}

// SetAuditor enables export auditing.
func (s *Service) SetAuditor(a ExportAuditor) {
	s.auditor = a
}

// Exporter resolves the writer for a format.
func (s *Service) Exporter(format Format) (ShelfExporter, error) {
	return New(format, s.now)
}

// Export lists the shelf oldest-first and writes it to w.
func (s *Service) Export(ctx context.Context, session *shelf.Session, exporter ShelfExporter, w io.Writer) (ExportResult, error) {
	entries, err := s.shelf.List(ctx, session, entities.ShelfFilter{})
	if err != nil {
		return ExportResult{}, err
	}
	reverse(entries)

	result, err := exporter.Export(w, entries)
	if err != nil {
		err = fmt.Errorf("write %s export: %w", exporter.Extension(), err)
	}
	if s.auditor != nil {
		s.auditor.LogExport(ctx, session.UserID, exporter.Extension(), result.EntriesProcessed, err)
	}
	return result, err
}

// The store lists newest first.
func reverse(entries []entities.ShelfEntry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
