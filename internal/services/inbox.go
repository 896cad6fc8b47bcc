package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/Lllllllleong/bookletflow/internal/models"
	"github.com/Lllllllleong/bookletflow/internal/pdfdoc"
)

// SystemOwner owns booklets that arrive through the inbox bucket.
const SystemOwner = "system"

// GCSEvent is the payload of a storage object finalize event.
type GCSEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

// ObjectReader downloads the uploaded PDF.
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, object string) ([]byte, error)
}

// BookletLookup returns (nil, nil) for unknown ids.
type BookletLookup interface {
	Get(ctx context.Context, docID string) (*models.Booklet, error)
}

// Notifier is told about every booklet the inbox converts.
type Notifier interface {
	Notify(ctx context.Context, event models.ConverterEvent) error
}

// InboxFunction converts PDFs dropped under a bucket prefix.
type InboxFunction struct {
	converter *ConverterFunction
	reader    ObjectReader
	lookup    BookletLookup
	notifier  Notifier // optional
	prefix    string
}

func NewInbox(converter *ConverterFunction, reader ObjectReader, lookup BookletLookup, notifier Notifier, prefix string) *InboxFunction {
	return &InboxFunction{converter: converter, reader: reader, lookup: lookup, notifier: notifier, prefix: prefix}
}

// Process ignores objects outside the inbox prefix and booklets that were
// already converted.
func (f *InboxFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)

	if !strings.HasPrefix(e.Name, f.prefix) || strings.HasSuffix(e.Name, "/") {
		logCtx.Debug("Object is outside the inbox. Skipping.")
		return nil
	}
	fileName := path.Base(e.Name)
	docID := models.DocumentID(fileName)
	logCtx = logCtx.With("documentId", docID)

	existing, err := f.lookup.Get(ctx, docID)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return fmt.Errorf("failed to check for duplicate: %w", err)
	}
	if existing != nil {
		logCtx.Info("Duplicate file detected. Skipping.")
		return nil
	}

	data, err := f.reader.ReadObject(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	contentType := e.ContentType
	if contentType == "" {
		contentType = pdfdoc.ContentType
	}
	booklet, err := f.converter.Process(ctx, &models.ConvertRequest{
		FileName:    fileName,
		ContentType: contentType,
		Data:        data,
		Title:       strings.TrimSuffix(fileName, path.Ext(fileName)),
		OwnerID:     SystemOwner,
	})
	if err != nil {
		return err
	}

	if f.notifier != nil {
		event := models.ConverterEvent{DocumentID: booklet.DocID, PageCount: booklet.NumberOfPages, OwnerID: booklet.OwnerID}
		if err := f.notifier.Notify(ctx, event); err != nil {
			logCtx.Error("Failed to hand off to workflow", "error", err)
			return err
		}
		logCtx.Info("Hand-off to workflow complete.")
	}
	return nil
}
