package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/bookletflow/internal/blobstore"
	"github.com/Lllllllleong/bookletflow/internal/models"
)

// Service is the catalog gateway used by the pipeline and the API. Stored
// records carry object keys; every read signs fresh URLs from them.
type Service struct {
	store Store
	blobs blobstore.Store
	now   func() time.Time
}

func NewService(store Store, blobs blobstore.Store) *Service {
	return &Service{store: store, blobs: blobs, now: time.Now}
}

// Get returns the booklet with signed URLs, or a NotFoundError.
func (s *Service) Get(ctx context.Context, docID string) (*models.Booklet, error) {
	b, err := s.store.Get(ctx, docID)
	if err != nil {
		return nil, models.StorageError("failed to read catalog", err)
	}
	if b == nil {
		return nil, models.NotFoundError(docID)
	}
	if err := s.Resolve(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Put persists a booklet as one unit.
func (s *Service) Put(ctx context.Context, b *models.Booklet) error {
	if err := s.store.Put(ctx, b); err != nil {
		return models.StorageError("failed to write catalog", err)
	}
	return nil
}

// Update applies a partial edit without re-running the pipeline. Only the
// touched top-level fields are written, plus modify_at.
func (s *Service) Update(ctx context.Context, docID string, patch models.BookletPatch) (*models.Booklet, error) {
	if patch.Empty() {
		return nil, models.InputValidationError("nothing to update", nil)
	}

	b, err := s.store.Update(ctx, docID, func(b *models.Booklet) ([]Field, error) {
		var fields []Field
		if patch.Title != nil {
			b.DocTitle = *patch.Title
			fields = append(fields, Field{Path: "doc_title", Value: b.DocTitle})
		}
		if patch.Description != nil {
			b.DocDescription = models.Truncate(*patch.Description, models.MaxDescriptionLength)
			fields = append(fields, Field{Path: "doc_description", Value: b.DocDescription})
		}
		if len(patch.PageTexts) > 0 {
			for pageNum, text := range patch.PageTexts {
				if pageNum < 1 || pageNum > len(b.Pages) {
					return nil, models.InputValidationError(fmt.Sprintf("page %d does not exist", pageNum), nil).WithPage(docID, pageNum)
				}
				e := &b.Pages[pageNum-1].Elements
				if text == "" {
					e.Text = nil
				} else {
					t := text
					e.Text = &t
				}
				e.CreateTxtTTS = true
			}
			fields = append(fields, Field{Path: "pages", Value: b.Pages})
		}
		b.ModifyAt = s.now().Unix()
		fields = append(fields, Field{Path: "modify_at", Value: b.ModifyAt})
		return fields, nil
	})
	if err != nil {
		return nil, wrapStoreError("failed to update booklet", err)
	}
	if err := s.Resolve(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// MarkNarrated records the stored text and fresh narration of a page and
// clears its create_txt_tts flag.
func (s *Service) MarkNarrated(ctx context.Context, docID string, pageNum int, txtKey, ttsKey string) (*models.Booklet, error) {
	b, err := s.store.Update(ctx, docID, func(b *models.Booklet) ([]Field, error) {
		if pageNum < 1 || pageNum > len(b.Pages) {
			return nil, models.InputValidationError(fmt.Sprintf("page %d does not exist", pageNum), nil).WithPage(docID, pageNum)
		}
		e := &b.Pages[pageNum-1].Elements
		e.TxtFileKey = txtKey
		e.TTSKey = ttsKey
		e.CreateTxtTTS = false
		b.ModifyAt = s.now().Unix()
		return []Field{
			{Path: "pages", Value: b.Pages},
			{Path: "modify_at", Value: b.ModifyAt},
		}, nil
	})
	if err != nil {
		return nil, wrapStoreError("failed to record narration", err)
	}
	if err := s.Resolve(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// TogglePublished flips is_published and bumps modify_at.
func (s *Service) TogglePublished(ctx context.Context, docID string) (*models.Booklet, error) {
	b, err := s.store.Update(ctx, docID, func(b *models.Booklet) ([]Field, error) {
		b.IsPublished = !b.IsPublished
		b.ModifyAt = s.now().Unix()
		return []Field{
			{Path: "is_published", Value: b.IsPublished},
			{Path: "modify_at", Value: b.ModifyAt},
		}, nil
	})
	if err != nil {
		return nil, wrapStoreError("failed to toggle publication", err)
	}
	if err := s.Resolve(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes the catalog record and then every object under the
// booklet's prefixes. All steps are attempted; any failure makes the whole
// delete fail and nothing is rolled back.
func (s *Service) Delete(ctx context.Context, docID string) error {
	logCtx := slog.With("documentId", docID)
	var errs []error

	if err := s.store.Delete(ctx, docID); err != nil {
		logCtx.Error("Failed to delete catalog record.", "error", err)
		errs = append(errs, err)
	}
	for _, prefix := range blobstore.Prefixes(docID) {
		if err := s.blobs.DeletePrefix(ctx, prefix); err != nil {
			logCtx.Error("Failed to delete objects.", "prefix", prefix, "error", err)
			errs = append(errs, fmt.Errorf("prefix %s: %w", prefix, err))
		}
	}
	if len(errs) > 0 {
		return models.StorageError(models.CleanupIncomplete, errors.Join(errs...))
	}
	logCtx.Info("Booklet deleted.")
	return nil
}

// List returns the summary projection with fresh cover URLs.
func (s *Service) List(ctx context.Context) ([]models.Booklet, error) {
	booklets, err := s.store.List(ctx)
	if err != nil {
		return nil, models.StorageError("failed to list catalog", err)
	}
	for i := range booklets {
		b := &booklets[i]
		b.Pages = nil
		key := b.CoverImgKey
		if key == "" && b.NumberOfPages > 0 {
			key = blobstore.CoverKey(b.DocID)
		}
		if key == "" {
			continue
		}
		url, err := s.blobs.SignedURL(ctx, key)
		if err != nil {
			return nil, models.StorageError("failed to sign cover image", err)
		}
		b.CoverImg = url
	}
	return booklets, nil
}

// Resolve signs a URL for every stored object key of b.
func (s *Service) Resolve(ctx context.Context, b *models.Booklet) error {
	sign := func(key string, dst *string) error {
		if key == "" {
			*dst = ""
			return nil
		}
		url, err := s.blobs.SignedURL(ctx, key)
		if err != nil {
			return models.StorageError("failed to sign "+key, err)
		}
		*dst = url
		return nil
	}

	if err := sign(b.CoverImgKey, &b.CoverImg); err != nil {
		return err
	}
	for i := range b.Pages {
		e := &b.Pages[i].Elements
		for _, pair := range []struct {
			key string
			dst *string
		}{
			{e.TxtFileKey, &e.TxtFileURL},
			{e.TTSKey, &e.TTSURL},
			{e.ImgKey, &e.ImgURL},
			{e.ImgTTSKey, &e.ImgTTSURL},
		} {
			if err := sign(pair.key, pair.dst); err != nil {
				return err
			}
		}
	}
	return nil
}

func wrapStoreError(message string, err error) error {
	var be *models.BookletError
	if errors.As(err, &be) {
		return err
	}
	return models.StorageError(message, err)
}
