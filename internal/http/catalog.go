package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type CatalogController struct {
	catalog CatalogSearcher
}

func NewCatalogController(catalog CatalogSearcher) *CatalogController {
	return &CatalogController{catalog: catalog}
}

// Search proxies a free-text query to the catalog.
// GET /api/catalog/search?q=
func (cc *CatalogController) Search(c *gin.Context) {
	works, err := cc.catalog.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondServiceError(c, err, "catalog search")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": works, "count": len(works)})
}

// Editions lists the editions of one work.
// GET /api/catalog/editions?work=
func (cc *CatalogController) Editions(c *gin.Context) {
	editions, err := cc.catalog.ListEditions(c.Request.Context(), c.Query("work"))
	if err != nil {
		respondServiceError(c, err, "catalog editions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"editions": editions, "count": len(editions)})
}
