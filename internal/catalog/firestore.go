package catalog

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/bookletflow/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps one document per booklet, keyed by doc id.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = "booklets"
	}
	return &FirestoreStore{client: client, collection: collection}
}

func (s *FirestoreStore) doc(docID string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(docID)
}

func (s *FirestoreStore) Get(ctx context.Context, docID string) (*models.Booklet, error) {
	snap, err := s.doc(docID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booklet %s: %w", docID, err)
	}
	var b models.Booklet
	if err := snap.DataTo(&b); err != nil {
		return nil, fmt.Errorf("failed to decode booklet %s: %w", docID, err)
	}
	return &b, nil
}

func (s *FirestoreStore) Put(ctx context.Context, b *models.Booklet) error {
	if _, err := s.doc(b.DocID).Set(ctx, b); err != nil {
		return fmt.Errorf("failed to save booklet %s: %w", b.DocID, err)
	}
	return nil
}

// Update reads and writes inside a transaction so the write only carries
// the fields the mutator named.
func (s *FirestoreStore) Update(ctx context.Context, docID string, mutate Mutator) (*models.Booklet, error) {
	ref := s.doc(docID)
	var out models.Booklet

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return models.NotFoundError(docID)
		}
		if err != nil {
			return fmt.Errorf("failed to read booklet %s: %w", docID, err)
		}

		var b models.Booklet
		if err := snap.DataTo(&b); err != nil {
			return fmt.Errorf("failed to decode booklet %s: %w", docID, err)
		}
		fields, err := mutate(&b)
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			out = b
			return nil
		}

		updates := make([]firestore.Update, 0, len(fields))
		for _, f := range fields {
			updates = append(updates, firestore.Update{Path: f.Path, Value: f.Value})
		}
		if err := tx.Update(ref, updates); err != nil {
			return fmt.Errorf("failed to update booklet %s: %w", docID, err)
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *FirestoreStore) Delete(ctx context.Context, docID string) error {
	if _, err := s.doc(docID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete booklet %s: %w", docID, err)
	}
	return nil
}

// List reads only the summary projection, newest first.
func (s *FirestoreStore) List(ctx context.Context) ([]models.Booklet, error) {
	snaps, err := s.client.Collection(s.collection).Select(models.SummaryFields...).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list booklets: %w", err)
	}
	out := make([]models.Booklet, 0, len(snaps))
	for _, snap := range snaps {
		var b models.Booklet
		if err := snap.DataTo(&b); err != nil {
			return nil, fmt.Errorf("failed to decode booklet %s: %w", snap.Ref.ID, err)
		}
		out = append(out, b)
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(bs []models.Booklet) {
	sort.SliceStable(bs, func(i, j int) bool {
		if bs[i].CreatedAt != bs[j].CreatedAt {
			return bs[i].CreatedAt > bs[j].CreatedAt
		}
		return bs[i].DocID < bs[j].DocID
	})
}
