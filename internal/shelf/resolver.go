package shelf

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// BookStore persists the shared Book catalog.
// Lookups return gorm.ErrRecordNotFound; inserts wrap database.ErrDuplicate.
type BookStore interface {
	FindByEditionKey(ctx context.Context, key string) (*entities.Book, error)
	GetByID(ctx context.Context, id uint) (*entities.Book, error)
	Create(ctx context.Context, book *entities.Book) error
}

// CoverWarmer is notified when a Book is created so its cover can be fetched ahead of time.
type CoverWarmer interface {
	WarmCover(ctx context.Context, book *entities.Book)
}

// Resolver finds or creates the canonical Book for a catalog edition.
type Resolver struct {
	books         BookStore
	coverTemplate string
	warmer        CoverWarmer
}

// NewResolver creates a resolver. coverTemplate is a fmt template taking the
// numeric cover id.
func NewResolver(books BookStore, coverTemplate string) *Resolver {
	return &Resolver{books: books, coverTemplate: coverTemplate}
}

// SetCoverWarmer registers a hook run after a new Book is inserted.
func (r *Resolver) SetCoverWarmer(w CoverWarmer) {
	r.warmer = w
}

// Resolve returns the Book for the edition, inserting it on first sight.
// An existing Book is returned unchanged: the first write wins.
func (r *Resolver) Resolve(ctx context.Context, edition catalog.Edition) (*entities.Book, error) {
	key := EditionKey(edition.Key)
	if key == "" {
		return nil, ErrInvalidEdition
	}

	existing, err := r.books.FindByEditionKey(ctx, key)
	if err == nil {
		return existing, nil
	}
	if !database.IsNotFound(err) {
		return nil, persistenceError("find book", err)
	}

	book := r.newBook(key, edition)
	if err := r.books.Create(ctx, book); err != nil {
		if !errors.Is(err, database.ErrDuplicate) {
			return nil, persistenceError("create book", err)
		}
		// Lost the race to a concurrent resolve of the same edition.
		winner, err := r.books.FindByEditionKey(ctx, key)
		if err != nil {
			return nil, persistenceError("find book", err)
		}
		return winner, nil
	}

	if r.warmer != nil {
		r.warmer.WarmCover(ctx, book)
	}
	return book, nil
}

func (r *Resolver) newBook(key string, edition catalog.Edition) *entities.Book {
	book := &entities.Book{
		OLEditionKey:  key,
		Title:         edition.Title,
		Author:        AuthorLine(edition.Authors),
		PublishedYear: ParseYear(edition.PublishDate),
	}
	if len(edition.Publishers) > 0 && edition.Publishers[0] != "" {
		publisher := edition.Publishers[0]
		book.Publisher = &publisher
	}
	if len(edition.ISBN13) > 0 && edition.ISBN13[0] != "" {
		isbn := edition.ISBN13[0]
		book.ISBN13 = &isbn
	}
	if len(edition.Covers) > 0 && edition.Covers[0] > 0 && r.coverTemplate != "" {
		coverURL := fmt.Sprintf(r.coverTemplate, edition.Covers[0])
		book.CoverURL = &coverURL
	}
	return book
}

// EditionKey strips any path prefix from a catalog key: "/books/OL1M" -> "OL1M".
func EditionKey(key string) string {
	key = strings.TrimSpace(key)
	if i := strings.LastIndex(key, "/"); i >= 0 {
		key = key[i+1:]
	}
	return key
}

// AuthorLine flattens edition authors into one display string.
func AuthorLine(authors []catalog.AuthorName) string {
	if len(authors) == 0 {
		return catalog.UnknownAuthor
	}
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			name = catalog.UnknownAuthor
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

// ParseYear extracts a year from a free-text publish date such as "1990",
// "March 1990" or "1990-03-01". Unparseable dates yield nil.
func ParseYear(date string) *int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return nil
	}

	formats := []string{
		"2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2006-01-02",
		"January 2006",
		"Jan 2006",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, date); err == nil && plausibleYear(t.Year()) {
			year := t.Year()
			return &year
		}
	}

	// Last resort: first run of 4 digits that looks like a year
	for i := 0; i <= len(date)-4; i++ {
		if year, err := strconv.Atoi(date[i : i+4]); err == nil && plausibleYear(year) {
			return &year
		}
	}
	return nil
}

func plausibleYear(year int) bool {
	return year > 1000 && year < 3000
}
