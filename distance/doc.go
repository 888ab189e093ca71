// Package distance provides the vector distance functions used by the
// matcher.
//
// # Supported Metrics
//
//   - MetricL2: squared Euclidean distance, the native distance of k-means
//   - MetricCosine: cosine distance (1 - cosine similarity), used for
//     centroid probing and candidate ranking
//
// Accumulation happens in float64 so that a vector compared with itself
// yields a cosine distance within 1e-6 of zero regardless of dimension.
//
// # Usage
//
//	d := distance.Cosine(a, b)
//	l2 := distance.SquaredL2(a, b)
package distance
