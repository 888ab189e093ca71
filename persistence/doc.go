// Package persistence provides the file-level primitives used to publish
// index artifacts: atomic replace-by-rename, CRC32 checksumming streams and a
// cross-process rebuild lock.
//
// A reader that opens an artifact path concurrently with SaveToFile sees
// either the complete previous file or the complete new one, never a
// partially written file.
package persistence
