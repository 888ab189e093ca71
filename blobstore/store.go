package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store reads and writes immutable blobs by key.
type Store interface {
	// Put writes a blob, replacing any previous blob under key.
	Put(ctx context.Context, key string, data []byte) error
	// Get returns the full contents of a blob.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
}
