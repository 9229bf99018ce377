package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// BookGetter loads a Book by id.
type BookGetter interface {
	GetByID(ctx context.Context, id uint) (*entities.Book, error)
}

// CoverFetcher downloads and caches a Book's cover image.
type CoverFetcher interface {
	GetCover(ctx context.Context, book *entities.Book) (string, error)
}

// WarmCoverTask downloads one book's cover into the local cache.
type WarmCoverTask struct {
	BookID uint `json:"book_id"`
}

// Config returns the queue configuration for cover warming tasks.
func (t WarmCoverTask) Config() backlite.QueueConfig {
	return queueConfig("warm_cover", 3, 30*time.Second, time.Minute)
}

// WarmCoverProcessor creates a processor function for WarmCoverTask.
func WarmCoverProcessor(books BookGetter, covers CoverFetcher) backlite.QueueProcessor[WarmCoverTask] {
	return func(ctx context.Context, task WarmCoverTask) error {
		if books == nil || covers == nil {
			return fmt.Errorf("cover cache not configured")
		}

		book, err := books.GetByID(ctx, task.BookID)
		if err != nil {
			return fmt.Errorf("load book %d: %w", task.BookID, err)
		}

		path, err := covers.GetCover(ctx, book)
		if err != nil {
			return fmt.Errorf("warm cover for book %d: %w", task.BookID, err)
		}

		log.Printf("[TASK] Cached cover for book %d (%s) at %s", book.ID, book.Title, path)
		return nil
	}
}

// NewWarmCoverQueue creates a backlite queue for cover warming tasks.
func NewWarmCoverQueue(books BookGetter, covers CoverFetcher) backlite.Queue {
	return backlite.NewQueue(WarmCoverProcessor(books, covers))
}

// Enqueuer is the part of Client used to schedule work.
type Enqueuer interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}

// CoverWarmer enqueues a WarmCoverTask whenever a new Book is created.
type CoverWarmer struct {
	queue Enqueuer
}

// NewCoverWarmer creates a warmer that schedules downloads on the queue.
func NewCoverWarmer(queue Enqueuer) *CoverWarmer {
	return &CoverWarmer{queue: queue}
}

// WarmCover is best effort: failures are logged, never returned.
func (w *CoverWarmer) WarmCover(_ context.Context, book *entities.Book) {
	if book == nil || book.CoverURL == nil || *book.CoverURL == "" {
		return
	}
	if _, err := w.queue.Add(WarmCoverTask{BookID: book.ID}).Save(); err != nil {
		log.Printf("[TASK ERROR] Failed to enqueue cover warm-up for book %d: %v", book.ID, err)
	}
}
