// Package minio implements blobstore.Store for MinIO and other
// S3-compatible object storage.
package minio
