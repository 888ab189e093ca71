package minio

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/hupe1980/biomatch/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	notFound := minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	assert.Equal(t, blobstore.ErrNotFound, mapError(notFound))

	other := errors.New("connection reset")
	assert.Equal(t, other, mapError(other))
}

// TestMinioStore_Integration requires a running MinIO instance.
// Set BIOMATCH_MINIO_ENDPOINT (e.g. localhost:9000) to enable.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("BIOMATCH_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("BIOMATCH_MINIO_ENDPOINT not set")
	}
	bucket := "test-biomatch"

	client, err := Dial(endpoint, "minioadmin", "minioadmin", false)
	require.NoError(t, err)

	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "test.bin", data))

	got, err := store.Get(ctx, "test.bin")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, store.Delete(ctx, "test.bin"))
	_, err = store.Get(ctx, "test.bin")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
