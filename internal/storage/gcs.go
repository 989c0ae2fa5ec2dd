package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore persists blobs into a Google Cloud Storage bucket and issues
// public object URLs.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a store backed by the named bucket.
func NewGCSStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSStore, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("storage: bucket name is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: create client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Upload writes the payload at path with the given content type.
func (s *GCSStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage: write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: close writer: %w", err)
	}
	return nil
}

// Delete removes the object at path. Missing objects are not an error.
func (s *GCSStore) Delete(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := s.client.Bucket(s.bucket).Object(path).Delete(ctx)
	if err == storage.ErrObjectNotExist {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: delete object: %w", err)
	}
	return nil
}

// URL returns the public address of the object at path.
func (s *GCSStore) URL(path string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, strings.TrimLeft(path, "/"))
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

var _ BlobStore = (*GCSStore)(nil)
