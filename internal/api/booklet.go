package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/Lllllllleong/bookletflow/internal/middleware"
	"github.com/Lllllllleong/bookletflow/internal/models"
	"github.com/Lllllllleong/bookletflow/internal/narration"
	"github.com/Lllllllleong/bookletflow/internal/pdfdoc"
	"github.com/gin-gonic/gin"
)

// Converter runs the conversion pipeline.
type Converter interface {
	Process(ctx context.Context, req *models.ConvertRequest) (*models.Booklet, error)
}

// Catalog is the catalog gateway seen by the handlers.
type Catalog interface {
	Get(ctx context.Context, docID string) (*models.Booklet, error)
	Update(ctx context.Context, docID string, patch models.BookletPatch) (*models.Booklet, error)
	TogglePublished(ctx context.Context, docID string) (*models.Booklet, error)
	Delete(ctx context.Context, docID string) error
	List(ctx context.Context) ([]models.Booklet, error)
}

// PageNarrator regenerates one page's narration.
type PageNarrator interface {
	Process(ctx context.Context, docID string, pageNum int, gender narration.Gender) (*models.Page, error)
}

type BookletHandler struct {
	converter Converter
	catalog   Catalog
	narrator  PageNarrator
	maxUpload int64
}

func NewBookletHandler(converter Converter, catalog Catalog, narrator PageNarrator, maxUpload int64) *BookletHandler {
	return &BookletHandler{converter: converter, catalog: catalog, narrator: narrator, maxUpload: maxUpload}
}

// Upload converts a multipart PDF upload into a booklet.
func (h *BookletHandler) Upload(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+(1<<20))
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		writeError(c, models.InputValidationError("no file provided", err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != pdfdoc.ContentType {
		writeError(c, models.InputValidationError("Invalid file type. Only PDF files are allowed.", nil))
		return
	}

	// The id is derived from the file name, so a re-upload replaces the booklet.
	if _, ok := h.authorize(c, models.DocumentID(header.Filename)); !ok {
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(c, models.InputValidationError("failed to read file", err))
		return
	}

	booklet, err := h.converter.Process(c.Request.Context(), &models.ConvertRequest{
		FileName:    header.Filename,
		ContentType: contentType,
		Data:        data,
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		OwnerID:     middleware.GetOwnerID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booklet)
}

// authorize loads the booklet and checks the caller owns it. A missing
// booklet is reported as (nil, true) so deletes stay retryable.
func (h *BookletHandler) authorize(c *gin.Context, docID string) (*models.Booklet, bool) {
	b, err := h.catalog.Get(c.Request.Context(), docID)
	if models.IsKind(err, models.KindNotFound) {
		return nil, true
	}
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if b.OwnerID != middleware.GetOwnerID(c) {
		writeError(c, models.ForbiddenError(docID))
		return nil, false
	}
	return b, true
}

func (h *BookletHandler) Delete(c *gin.Context) {
	docID := c.Param("doc_id")
	if _, ok := h.authorize(c, docID); !ok {
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), docID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.DeleteBookletResponse{
		DeletedBookletID: docID,
		Username:         middleware.GetUsername(c),
	})
}

type patchRequest struct {
	Title       *string           `json:"doc_title"`
	Description *string           `json:"doc_description"`
	Pages       map[string]string `json:"pages"`
}

// Patch edits title, description and page texts in place.
func (h *BookletHandler) Patch(c *gin.Context) {
	docID := c.Param("doc_id")
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.InputValidationError("invalid body", err))
		return
	}
	patch := models.BookletPatch{Title: req.Title, Description: req.Description}
	for k, text := range req.Pages {
		n, err := strconv.Atoi(k)
		if err != nil {
			writeError(c, models.InputValidationError(fmt.Sprintf("invalid page number %q", k), err))
			return
		}
		if patch.PageTexts == nil {
			patch.PageTexts = make(map[int]string)
		}
		patch.PageTexts[n] = text
	}

	b, ok := h.authorize(c, docID)
	if !ok {
		return
	}
	if b == nil {
		writeError(c, models.NotFoundError(docID))
		return
	}
	updated, err := h.catalog.Update(c.Request.Context(), docID, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Publish toggles the published flag.
func (h *BookletHandler) Publish(c *gin.Context) {
	docID := c.Param("doc_id")
	b, ok := h.authorize(c, docID)
	if !ok {
		return
	}
	if b == nil {
		writeError(c, models.NotFoundError(docID))
		return
	}
	updated, err := h.catalog.TogglePublished(c.Request.Context(), docID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type narrateRequest struct {
	Gender string `json:"gender"`
}

// Narrate regenerates the narration of one page.
func (h *BookletHandler) Narrate(c *gin.Context) {
	docID := c.Param("doc_id")
	pageNum, err := strconv.Atoi(c.Param("page_num"))
	if err != nil {
		writeError(c, models.InputValidationError("invalid page number", err))
		return
	}
	var req narrateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, models.InputValidationError("invalid body", err))
			return
		}
	}

	b, ok := h.authorize(c, docID)
	if !ok {
		return
	}
	if b == nil {
		writeError(c, models.NotFoundError(docID))
		return
	}
	page, err := h.narrator.Process(c.Request.Context(), docID, pageNum, narration.Gender(req.Gender))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, page)
}
