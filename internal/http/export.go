package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/exporters"
)

type ExportController struct {
	exports ShelfExportService
	now     func() time.Time
}

func NewExportController(exports ShelfExportService) *ExportController {
	return &ExportController{exports: exports, now: time.Now}
}

// Export downloads the caller's shelf.
// GET /api/shelf/export?format=csv|json|markdown
func (ec *ExportController) Export(c *gin.Context) {
	format, err := exporters.ParseFormat(c.DefaultQuery("format", string(exporters.FormatCSV)))
	if err != nil {
		respondBadRequest(c, "format must be one of csv, json or markdown")
		return
	}
	exporter, err := ec.exports.Exporter(format)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	// Buffered so that a failure can still be reported as JSON
	var buf bytes.Buffer
	if _, err := ec.exports.Export(c.Request.Context(), auth.GetSession(c), exporter, &buf); err != nil {
		if errors.Is(err, exporters.ErrUnknownFormat) {
			respondBadRequest(c, err.Error())
			return
		}
		respondServiceError(c, err, "export shelf")
		return
	}

	filename := exporters.Filename(exporter, ec.now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, exporter.ContentType(), buf.Bytes())
}
