package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/bookletflow/internal/gcp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
)

// GCSStore keeps artifacts in a Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	expiry time.Duration
	retry  RetryPolicy
}

func NewGCSStore(ctx context.Context, cfg Config) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("blob bucket must be set")
	}
	client, err := gcp.NewStorageClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GCSStore{client: client, bucket: cfg.Bucket, expiry: cfg.URLExpiry, retry: cfg.Retry}, nil
}

// ObjectURI is the gs:// form of key, readable by other Google Cloud services.
func (s *GCSStore) ObjectURI(key string) string {
	return "gs://" + s.bucket + "/" + key
}

func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return withRetry(ctx, key, s.retry, func(writeCtx context.Context) error {
		gcsWriter := s.client.Bucket(s.bucket).Object(key).NewWriter(writeCtx)
		gcsWriter.ContentType = contentType

		if _, err := io.Copy(gcsWriter, bytes.NewReader(data)); err != nil {
			_ = gcsWriter.Close()
			return fmt.Errorf("io.Copy to GCS failed: %w", err)
		}
		if err := gcsWriter.Close(); err != nil {
			return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
		}
		return nil
	})
}

// SignedURL issues a V4 signed GET URL using the client's credentials.
func (s *GCSStore) SignedURL(_ context.Context, key string) (string, error) {
	url, err := s.client.Bucket(s.bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(s.expiry),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign gs://%s/%s: %w", s.bucket, key, err)
	}
	return url, nil
}

func (s *GCSStore) DeletePrefix(ctx context.Context, prefix string) error {
	bucket := s.client.Bucket(s.bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(10)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			_ = eg.Wait()
			return fmt.Errorf("failed to list gs://%s/%s: %w", s.bucket, prefix, err)
		}
		name := attrs.Name
		eg.Go(func() error {
			err := bucket.Object(name).Delete(gctx)
			if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
				return fmt.Errorf("failed to delete gs://%s/%s: %w", s.bucket, name, err)
			}
			return nil
		})
	}
	return eg.Wait()
}

// ReadObject exposes the underlying client for event-driven downloads.
func (s *GCSStore) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	return gcp.ReadObject(ctx, s.client, bucket, object)
}
