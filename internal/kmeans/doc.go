// Package kmeans implements k-means clustering for inverted-file index
// training.
//
// Centroids live in one flat slice of k*dim values; vectors are passed the
// same way. Training is deterministic for a given seed.
package kmeans
