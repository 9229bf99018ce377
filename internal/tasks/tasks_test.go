package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

type fakeBooks struct {
	books []entities.Book
}

func (f *fakeBooks) GetByID(_ context.Context, id uint) (*entities.Book, error) {
	for i := range f.books {
		if f.books[i].ID == id {
			return &f.books[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBooks) ListWithCovers(_ context.Context, limit int) ([]entities.Book, error) {
	if limit > 0 && limit < len(f.books) {
		return f.books[:limit], nil
	}
	return f.books, nil
}

type fakeCache struct {
	cached  map[uint]bool
	failFor map[uint]bool
	fetched []uint
}

func (f *fakeCache) GetCover(_ context.Context, book *entities.Book) (string, error) {
	if f.failFor[book.ID] {
		return "", errors.New("status 404")
	}
	f.fetched = append(f.fetched, book.ID)
	return "/tmp/cover.jpg", nil
}

func (f *fakeCache) Cached(book *entities.Book) bool {
	return f.cached[book.ID]
}

func coverBook(id uint) entities.Book {
	url := "https://covers.example.com/b/id/1-M.jpg"
	return entities.Book{ID: id, Title: "Book", CoverURL: &url}
}

func TestWarmCoverProcessor(t *testing.T) {
	books := &fakeBooks{books: []entities.Book{coverBook(1)}}
	cache := &fakeCache{}

	process := WarmCoverProcessor(books, cache)

	require.NoError(t, process(context.Background(), WarmCoverTask{BookID: 1}))
	assert.Equal(t, []uint{1}, cache.fetched)

	err := process(context.Background(), WarmCoverTask{BookID: 99})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.Error(t, WarmCoverProcessor(nil, nil)(context.Background(), WarmCoverTask{BookID: 1}))
}

func TestWarmAllCovers(t *testing.T) {
	books := &fakeBooks{books: []entities.Book{coverBook(1), coverBook(2), coverBook(3)}}
	cache := &fakeCache{
		cached:  map[uint]bool{2: true},
		failFor: map[uint]bool{3: true},
	}

	result, err := WarmAllCovers(context.Background(), books, cache, 0)
	require.NoError(t, err)
	assert.Equal(t, WarmAllCoversResult{Total: 3, Fetched: 1, Skipped: 1, Failed: 1}, result)
	assert.Equal(t, []uint{1}, cache.fetched)
}

func TestWarmAllCovers_Cancelled(t *testing.T) {
	books := &fakeBooks{books: []entities.Book{coverBook(1)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WarmAllCovers(ctx, books, &fakeCache{}, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeCleaner struct {
	retention time.Duration
}

func (f *fakeCleaner) DeleteOldEvents(_ context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return 4, nil
}

func TestCleanupAuditEventsProcessor(t *testing.T) {
	cleaner := &fakeCleaner{}
	process := CleanupAuditEventsProcessor(cleaner)

	require.NoError(t, process(context.Background(), CleanupAuditEventsTask{RetentionDays: 7}))
	assert.Equal(t, 7*24*time.Hour, cleaner.retention)

	require.NoError(t, process(context.Background(), CleanupAuditEventsTask{}))
	assert.Equal(t, 90*24*time.Hour, cleaner.retention)

	assert.Error(t, CleanupAuditEventsProcessor(nil)(context.Background(), CleanupAuditEventsTask{}))
}

func TestCoverWarmer_SkipsBooksWithoutCover(t *testing.T) {
	// A nil queue would panic if Add were reached
	warmer := NewCoverWarmer(nil)
	warmer.WarmCover(context.Background(), &entities.Book{ID: 1})
	warmer.WarmCover(context.Background(), nil)
}
