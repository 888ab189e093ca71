// Package ivf implements the inverted-file (IVF) index used for biometric
// matching.
//
// Fit clusters the active embeddings of one modality with k-means and
// partitions them into per-cluster inverted lists. Search probes the NProbe
// centroids closest to the query (cosine distance), ranks every candidate in
// those lists by exact cosine distance and returns the TopK nearest.
//
// # Layout
//
// An Index is an arena: one flat slice of centroids, one flat slice of
// embeddings and one slice of subject ids, the latter two grouped by cluster
// and delimited by an offsets table. A built Index is immutable and safe for
// concurrent searches.
//
// # Degenerate configurations
//
// NClusters = 1, or NProbe >= NClusters, makes Search an exhaustive scan
// whose ranking equals a brute-force cosine ranking of the same vectors.
//
// # Persistence
//
// Save writes the versioned binary artifact atomically; Load reads it back
// and rejects unknown schema versions, truncated files and checksum
// mismatches with ErrIndexCorrupt.
package ivf
