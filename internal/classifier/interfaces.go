package classifier

import "context"

// BlobStore persists opaque model blobs by key.
// Get returns an error wrapping common.ErrNotFound when the key is absent.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
