package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// CoverLister lists books that reference a remote cover image.
type CoverLister interface {
	ListWithCovers(ctx context.Context, limit int) ([]entities.Book, error)
}

// CoverCache is a CoverFetcher that can also report what is already on disk.
type CoverCache interface {
	CoverFetcher
	Cached(book *entities.Book) bool
}

// WarmAllCoversTask backfills the cover cache for every book with a cover URL.
// Runs sequentially so Open Library sees a single client.
type WarmAllCoversTask struct {
	Limit int `json:"limit,omitempty"`
}

// Config returns the queue configuration for cover backfill tasks.
func (t WarmAllCoversTask) Config() backlite.QueueConfig {
	return queueConfig("warm_all_covers", 1, time.Minute, time.Hour)
}

// WarmAllCoversResult summarizes one backfill run.
type WarmAllCoversResult struct {
	Total   int
	Fetched int
	Skipped int
	Failed  int
}

// WarmAllCovers fetches every missing cover. Individual failures are counted,
// not returned; only listing errors and cancellation abort the run.
func WarmAllCovers(ctx context.Context, lister CoverLister, cache CoverCache, limit int) (WarmAllCoversResult, error) {
	var result WarmAllCoversResult

	books, err := lister.ListWithCovers(ctx, limit)
	if err != nil {
		return result, fmt.Errorf("list books with covers: %w", err)
	}
	result.Total = len(books)

	for i := range books {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		book := &books[i]
		if cache.Cached(book) {
			result.Skipped++
			continue
		}
		if _, err := cache.GetCover(ctx, book); err != nil {
			log.Printf("[TASK] Cover for book %d failed: %v", book.ID, err)
			result.Failed++
			continue
		}
		result.Fetched++
	}

	return result, nil
}

// WarmAllCoversProcessor creates a processor function for WarmAllCoversTask.
func WarmAllCoversProcessor(lister CoverLister, cache CoverCache) backlite.QueueProcessor[WarmAllCoversTask] {
	return func(ctx context.Context, task WarmAllCoversTask) error {
		if lister == nil || cache == nil {
			return fmt.Errorf("cover cache not configured")
		}

		result, err := WarmAllCovers(ctx, lister, cache, task.Limit)
		if err != nil {
			return fmt.Errorf("warm all covers: %w", err)
		}

		log.Printf("[TASK] Cover backfill complete: %d total, %d fetched, %d skipped, %d failed",
			result.Total, result.Fetched, result.Skipped, result.Failed)
		return nil
	}
}

// NewWarmAllCoversQueue creates a backlite queue for cover backfill tasks.
func NewWarmAllCoversQueue(lister CoverLister, cache CoverCache) backlite.Queue {
	return backlite.NewQueue(WarmAllCoversProcessor(lister, cache))
}
