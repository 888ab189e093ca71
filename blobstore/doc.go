// Package blobstore publishes index artifacts to shared storage so that
// other nodes can restore them without rebuilding.
//
// Store is the interface for reading and writing whole blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local directory with atomic writes
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 with multipart uploads
//   - minio.Store: MinIO and other S3-compatible servers
//
// Publisher layers artifact encoding and compression on top of a Store.
package blobstore
