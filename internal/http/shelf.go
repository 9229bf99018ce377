package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/shelf"
)

const (
	defaultShelfLimit = 50
	maxShelfLimit     = 200
)

// addRequest carries either a catalog edition picked by the user or the id
// of a Book that already exists.
type addRequest struct {
	Edition *catalog.Edition `json:"edition"`
	BookID  uint             `json:"book_id"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type tagsRequest struct {
	Tags []string `json:"tags" binding:"max=20,dive,max=50"`
}

// entryResponse adds display-ready re-read passes to an entry.
type entryResponse struct {
	*entities.ShelfEntry
	RereadCount int                `json:"reread_count"`
	Rereads     []shelf.RereadView `json:"rereads"`
}

func newEntryResponse(entry *entities.ShelfEntry) entryResponse {
	return entryResponse{
		ShelfEntry:  entry,
		RereadCount: entry.RereadCount(),
		Rereads:     shelf.DescribeRereads(entry.ReReadLogs),
	}
}

type ShelfController struct {
	shelf ShelfService
}

func NewShelfController(service ShelfService) *ShelfController {
	return &ShelfController{shelf: service}
}

// List returns the caller's entries, newest first.
// GET /api/shelf?status=&sort=recent&limit=&offset=
func (sc *ShelfController) List(c *gin.Context) {
	filter := entities.ShelfFilter{
		Recent: c.Query("sort") == "recent",
		Limit:  parseLimit(c, defaultShelfLimit, maxShelfLimit),
		Offset: parseOffset(c),
	}
	if raw := c.Query("status"); raw != "" {
		status, err := shelf.ParseStatus(raw)
		if err != nil {
			respondServiceError(c, err, "list shelf")
			return
		}
		filter.Status = status
	}

	entries, err := sc.shelf.List(c.Request.Context(), auth.GetSession(c), filter)
	if err != nil {
		respondServiceError(c, err, "list shelf")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// Stats returns per-status counts.
// GET /api/shelf/stats
func (sc *ShelfController) Stats(c *gin.Context) {
	stats, err := sc.shelf.Stats(c.Request.Context(), auth.GetSession(c))
	if err != nil {
		respondServiceError(c, err, "shelf stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Add puts an edition or an existing book on the shelf.
// POST /api/shelf
func (sc *ShelfController) Add(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	session := auth.GetSession(c)

	var (
		entry *entities.ShelfEntry
		err   error
	)
	switch {
	case req.Edition != nil:
		entry, err = sc.shelf.AddEdition(ctx, session, *req.Edition)
	case req.BookID != 0:
		entry, err = sc.shelf.AddToShelf(ctx, session, req.BookID)
	default:
		respondBadRequest(c, "edition or book_id is required")
		return
	}
	if err != nil {
		respondServiceError(c, err, "add to shelf")
		return
	}

	c.JSON(http.StatusCreated, newEntryResponse(entry))
}

// Get returns one entry with its book and re-read history.
// GET /api/shelf/:id
func (sc *ShelfController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := sc.shelf.Get(c.Request.Context(), auth.GetSession(c), id)
	if err != nil {
		respondServiceError(c, err, "get shelf entry")
		return
	}
	c.JSON(http.StatusOK, newEntryResponse(entry))
}

// Remove hard-deletes an entry. The client confirms before calling.
// DELETE /api/shelf/:id
func (sc *ShelfController) Remove(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := sc.shelf.RemoveFromShelf(c.Request.Context(), auth.GetSession(c), id); err != nil {
		respondServiceError(c, err, "remove from shelf")
		return
	}
	respondSuccess(c, "removed from shelf")
}

// SetStatus moves an entry to another reading status.
// PUT /api/shelf/:id/status
func (sc *ShelfController) SetStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	status, err := shelf.ParseStatus(req.Status)
	if err != nil {
		respondServiceError(c, err, "set status")
		return
	}

	entry, err := sc.shelf.SetStatus(c.Request.Context(), auth.GetSession(c), id, status)
	if err != nil {
		respondServiceError(c, err, "set status")
		return
	}
	c.JSON(http.StatusOK, newEntryResponse(entry))
}

// SetTags replaces the entry's tags. An empty list clears them.
// PUT /api/shelf/:id/tags
func (sc *ShelfController) SetTags(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req tagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	entry, err := sc.shelf.SetTags(c.Request.Context(), auth.GetSession(c), id, req.Tags)
	if err != nil {
		respondServiceError(c, err, "set tags")
		return
	}
	c.JSON(http.StatusOK, newEntryResponse(entry))
}

// StartReread opens a new re-read pass on a completed entry.
// POST /api/shelf/:id/rereads
func (sc *ShelfController) StartReread(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := sc.shelf.StartReread(c.Request.Context(), auth.GetSession(c), id)
	if err != nil {
		respondServiceError(c, err, "start re-read")
		return
	}
	c.JSON(http.StatusCreated, newEntryResponse(entry))
}

// CompleteReread closes the open re-read pass.
// POST /api/shelf/:id/rereads/complete
func (sc *ShelfController) CompleteReread(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := sc.shelf.CompleteReread(c.Request.Context(), auth.GetSession(c), id)
	if err != nil {
		respondServiceError(c, err, "complete re-read")
		return
	}
	c.JSON(http.StatusOK, newEntryResponse(entry))
}
