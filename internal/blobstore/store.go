// Package blobstore stores booklet artifacts and hands out time-limited read URLs.
package blobstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Content types of the stored artifacts.
const (
	ContentTypePNG  = "image/png"
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeMP3  = "audio/mpeg"
)

// Store is safe for concurrent use by multiple conversions.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	SignedURL(ctx context.Context, key string) (string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// Config selects and configures a backend.
type Config struct {
	Backend   string // gcs, minio or memory
	Bucket    string
	URLExpiry time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioRegion    string

	Retry RetryPolicy
}

// RetryPolicy controls upload retries.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	WriteTimeout   time.Duration
}

// DefaultRetryPolicy retries four times, doubling from one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 4, InitialBackoff: time.Second, WriteTimeout: 50 * time.Second}
}

// New builds the configured backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = time.Hour
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}

	switch cfg.Backend {
	case "", "gcs":
		return NewGCSStore(ctx, cfg)
	case "minio":
		store, err := NewMinioStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return NewMemoryStore(cfg.Bucket, cfg.URLExpiry), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}

// withRetry runs attempt with exponential backoff until it succeeds, the
// attempts run out, or ctx is done.
func withRetry(ctx context.Context, key string, policy RetryPolicy, attempt func(ctx context.Context) error) error {
	backoff := policy.InitialBackoff
	var lastErr error

	for i := 0; i < policy.MaxAttempts; i++ {
		err := func() error {
			writeCtx := ctx
			if policy.WriteTimeout > 0 {
				var cancel context.CancelFunc
				writeCtx, cancel = context.WithTimeout(ctx, policy.WriteTimeout)
				defer cancel()
			}
			return attempt(writeCtx)
		}()
		if err == nil {
			return nil
		}

		lastErr = err
		if i == policy.MaxAttempts-1 {
			break
		}
		slog.Warn(
			"Upload failed, will retry.",
			"objectKey", key,
			"attempt", i+1,
			"maxRetries", policy.MaxAttempts,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "objectKey", key, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "objectKey", key, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", key, lastErr)
}
