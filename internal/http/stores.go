package http

import (
	"context"
	"io"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/exporters"
	"github.com/mrlokans/bookshelf/internal/shelf"
)

// CatalogSearcher is the read-only Open Library proxy.
type CatalogSearcher interface {
	Search(ctx context.Context, query string) ([]catalog.Work, error)
	ListEditions(ctx context.Context, workKey string) ([]catalog.Edition, error)
}

// ShelfService is every shelf operation a controller may call.
type ShelfService interface {
	AddToShelf(ctx context.Context, session *shelf.Session, bookID uint) (*entities.ShelfEntry, error)
	AddEdition(ctx context.Context, session *shelf.Session, edition catalog.Edition) (*entities.ShelfEntry, error)
	RemoveFromShelf(ctx context.Context, session *shelf.Session, entryID uint) error
	Get(ctx context.Context, session *shelf.Session, entryID uint) (*entities.ShelfEntry, error)
	List(ctx context.Context, session *shelf.Session, filter entities.ShelfFilter) ([]entities.ShelfEntry, error)
	Stats(ctx context.Context, session *shelf.Session) (*entities.ShelfStats, error)
	SetStatus(ctx context.Context, session *shelf.Session, entryID uint, status entities.ReadingStatus) (*entities.ShelfEntry, error)
	SetTags(ctx context.Context, session *shelf.Session, entryID uint, tags []string) (*entities.ShelfEntry, error)
	StartReread(ctx context.Context, session *shelf.Session, entryID uint) (*entities.ShelfEntry, error)
	CompleteReread(ctx context.Context, session *shelf.Session, entryID uint) (*entities.ShelfEntry, error)
}

// BookReader loads shared Book rows.
type BookReader interface {
	GetByID(ctx context.Context, id uint) (*entities.Book, error)
}

// CoverCache returns a local file path for a book's cover.
type CoverCache interface {
	GetCover(ctx context.Context, book *entities.Book) (string, error)
}

// ShelfExportService writes the session user's shelf in a chosen format.
type ShelfExportService interface {
	Exporter(format exporters.Format) (exporters.ShelfExporter, error)
	Export(ctx context.Context, session *shelf.Session, exporter exporters.ShelfExporter, w io.Writer) (exporters.ExportResult, error)
}

// AuditReader lists a user's audit events.
type AuditReader interface {
	GetEvents(ctx context.Context, userID uint, eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error)
	History(ctx context.Context, userID, entryID uint) ([]entities.AuditEvent, error)
}
