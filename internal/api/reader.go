package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ReaderHandler struct {
	catalog Catalog
}

func NewReaderHandler(catalog Catalog) *ReaderHandler {
	return &ReaderHandler{catalog: catalog}
}

// Bookshelf lists every booklet without page detail.
func (h *ReaderHandler) Bookshelf(c *gin.Context) {
	booklets, err := h.catalog.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if len(booklets) == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "No booklets in the catalog"})
		return
	}
	c.JSON(http.StatusOK, booklets)
}

// Booklet returns one booklet with freshly signed URLs.
func (h *ReaderHandler) Booklet(c *gin.Context) {
	b, err := h.catalog.Get(c.Request.Context(), c.Param("doc_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
