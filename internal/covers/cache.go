// Package covers keeps a local copy of Open Library cover images so the
// shelf can serve them without hitting the cover service on every view.
package covers

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// maxCoverBytes caps a single downloaded image.
const maxCoverBytes = 5 << 20

var (
	ErrNoCover       = errors.New("book has no cover")
	ErrCoverTooLarge = errors.New("cover image too large")
)

// Cache stores one image per (book, cover URL) under a flat directory.
// Files are named cover_<bookID>_<urlhash>.jpg, so a changed cover URL
// maps to a new file and the old one is pruned after the download.
type Cache struct {
	dir       string
	userAgent string
	client    *http.Client
}

func NewCache(dir, userAgent string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cover dir: %w", err)
	}
	return &Cache{
		dir:       dir,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *Cache) CacheDir() string { return c.dir }

// GetCover returns the local path of book's cover, downloading it on
// first use. Books without a cover URL yield ErrNoCover.
func (c *Cache) GetCover(ctx context.Context, book *entities.Book) (string, error) {
	path, ok := c.pathFor(book)
	if !ok {
		return "", ErrNoCover
	}
	if fileExists(path) {
		return path, nil
	}

	if err := c.download(ctx, *book.CoverURL, path); err != nil {
		return "", err
	}
	c.pruneStale(book.ID, path)
	return path, nil
}

// Cached reports whether book's current cover is already on disk.
func (c *Cache) Cached(book *entities.Book) bool {
	path, ok := c.pathFor(book)
	return ok && fileExists(path)
}

func (c *Cache) pathFor(book *entities.Book) (string, bool) {
	if book.CoverURL == nil || *book.CoverURL == "" {
		return "", false
	}
	sum := sha256.Sum256([]byte(*book.CoverURL))
	return filepath.Join(c.dir, fmt.Sprintf("cover_%d_%x.jpg", book.ID, sum[:8])), true
}

// pruneStale removes covers of bookID other than keep.
func (c *Cache) pruneStale(bookID uint, keep string) {
	matches, err := filepath.Glob(filepath.Join(c.dir, fmt.Sprintf("cover_%d_*", bookID)))
	if err != nil {
		return
	}
	for _, m := range matches {
		if m == keep {
			continue
		}
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			log.Printf("[COVERS] remove stale cover %s: %v", m, err)
		}
	}
}

func (c *Cache) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch cover: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("fetch cover: unexpected content type %q", ct)
	}

	return writeAtomic(c.dir, dest, resp.Body)
}

// writeAtomic copies at most maxCoverBytes from r into a temp file in dir
// and renames it to dest, so readers never see a partial image.
func writeAtomic(dir, dest string, r io.Reader) error {
	tmp, err := os.CreateTemp(dir, "cover_tmp_")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(r, maxCoverBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if n > maxCoverBytes {
		return ErrCoverTooLarge
	}
	return os.Rename(tmp.Name(), dest)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
