package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CoversController serves locally cached book covers.
type CoversController struct {
	cache CoverCache
	books BookReader
}

// NewCoversController creates a new CoversController.
func NewCoversController(cache CoverCache, books BookReader) *CoversController {
	return &CoversController{
		cache: cache,
		books: books,
	}
}

// GetCover serves a cached book cover image.
// GET /api/books/:id/cover
func (cc *CoversController) GetCover(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.books.GetByID(c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "book")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get book for cover")
		return
	}

	if book.CoverURL == nil || *book.CoverURL == "" {
		respondNotFound(c, "cover")
		return
	}

	cachePath, err := cc.cache.GetCover(c.Request.Context(), book)
	if err != nil {
		// Fallback: redirect to original URL
		log.Printf("Cover cache miss for book %d: %v", book.ID, err)
		c.Redirect(http.StatusTemporaryRedirect, *book.CoverURL)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.File(cachePath)
}
