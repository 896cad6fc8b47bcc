// Package catalog persists finished booklets and serves them to readers.
package catalog

import (
	"context"

	"github.com/Lllllllleong/bookletflow/internal/models"
)

// Field is a top-level booklet field to write in a partial update.
type Field struct {
	Path  string
	Value any
}

// Mutator edits a booklet in place and names the fields it touched.
type Mutator func(b *models.Booklet) ([]Field, error)

// Store is the key/value view of the catalog.
//
// Get returns (nil, nil) when the booklet is absent. Update returns a
// NotFoundError instead. Delete of an absent booklet is not an error.
type Store interface {
	Get(ctx context.Context, docID string) (*models.Booklet, error)
	Put(ctx context.Context, b *models.Booklet) error
	Update(ctx context.Context, docID string, mutate Mutator) (*models.Booklet, error)
	Delete(ctx context.Context, docID string) error
	List(ctx context.Context) ([]models.Booklet, error)
}
