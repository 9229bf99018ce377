package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/entities"
)

type AuditController struct {
	audit AuditReader
}

func NewAuditController(audit AuditReader) *AuditController {
	return &AuditController{audit: audit}
}

// GetAuditEvents returns the caller's audit events, newest first.
// GET /api/audit?type=&page=&limit=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	userID := auth.GetUserID(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit := parseLimit(c, 25, 100)
	offset := (page - 1) * limit

	eventType := entities.AuditEventType(c.Query("type"))
	events, total, err := ac.audit.GetEvents(c.Request.Context(), userID, eventType, limit, offset)
	if err != nil {
		respondInternalError(c, err, "get audit events")
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"events":       events,
		"page":         page,
		"limit":        limit,
		"total_pages":  totalPages,
		"total_events": total,
	})
}

// GetEntryHistory returns every recorded change to one shelf entry.
// GET /api/shelf/:id/history
func (ac *AuditController) GetEntryHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	events, err := ac.audit.History(c.Request.Context(), auth.GetUserID(c), id)
	if err != nil {
		respondInternalError(c, err, "get entry history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}
