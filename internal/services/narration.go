package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/bookletflow/internal/blobstore"
	"github.com/Lllllllleong/bookletflow/internal/models"
	"github.com/Lllllllleong/bookletflow/internal/narration"
)

// PageCatalog is the part of the catalog gateway used to re-narrate pages.
type PageCatalog interface {
	Get(ctx context.Context, docID string) (*models.Booklet, error)
	MarkNarrated(ctx context.Context, docID string, pageNum int, txtKey, ttsKey string) (*models.Booklet, error)
}

// NarrationFunction regenerates the narration of a single page, typically
// after its text was edited.
type NarrationFunction struct {
	narrator Narrator
	blobs    blobstore.Store
	catalog  PageCatalog
}

func NewNarration(narrator Narrator, blobs blobstore.Store, catalog PageCatalog) *NarrationFunction {
	return &NarrationFunction{narrator: narrator, blobs: blobs, catalog: catalog}
}

// Process synthesizes the page's current text with the requested voice and
// returns the updated page.
func (f *NarrationFunction) Process(ctx context.Context, docID string, pageNum int, gender narration.Gender) (*models.Page, error) {
	logCtx := slog.With("documentId", docID, "pageNumber", pageNum)

	b, err := f.catalog.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	if pageNum < 1 || pageNum > len(b.Pages) {
		return nil, models.InputValidationError(fmt.Sprintf("page %d does not exist", pageNum), nil).WithPage(docID, pageNum)
	}
	text := b.Pages[pageNum-1].Elements.Text
	if text == nil || *text == "" {
		return nil, models.InputValidationError("page has no text to narrate", nil).WithPage(docID, pageNum)
	}

	audio, err := f.narrator.Synthesize(ctx, *text, gender)
	if err != nil {
		return nil, wrapAs(err, models.SynthesisError("failed to narrate page text", err), docID, pageNum)
	}
	txtKey := blobstore.TextKey(docID, pageNum)
	if err := f.blobs.Put(ctx, txtKey, []byte(*text), blobstore.ContentTypeText); err != nil {
		return nil, models.StorageError("failed to upload "+txtKey, err).WithPage(docID, pageNum)
	}
	ttsKey := blobstore.NarrationKey(docID, pageNum)
	if err := f.blobs.Put(ctx, ttsKey, audio, blobstore.ContentTypeMP3); err != nil {
		return nil, models.StorageError("failed to upload "+ttsKey, err).WithPage(docID, pageNum)
	}

	updated, err := f.catalog.MarkNarrated(ctx, docID, pageNum, txtKey, ttsKey)
	if err != nil {
		return nil, err
	}
	logCtx.Info("Page narration regenerated.", "gender", gender)
	page := updated.Pages[pageNum-1]
	return &page, nil
}
