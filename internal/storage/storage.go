package storage

import "context"

// BlobStore is the object-storage abstraction the asset service writes
// binaries through. Paths are opaque content locators; URL turns one into a
// retrievable address.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	Delete(ctx context.Context, path string) error
	URL(path string) string
}
