package kmeans

import (
	"cmp"
	"context"
	"errors"
	"math"
	"math/rand"
	"slices"

	"github.com/hupe1980/biomatch/distance"
)

// ErrTooFewVectors is returned when fewer vectors than clusters are supplied.
var ErrTooFewVectors = errors.New("kmeans: fewer vectors than clusters")

// TrainKMeans trains k centroids from the given vectors using Lloyd's algorithm.
// It returns the flattened centroids (k * dim).
//
// Initial centroids are k distinct data points drawn with the given seed.
// Empty clusters are re-seeded with a random data point. ctx is checked
// once per iteration.
func TrainKMeans(ctx context.Context, vectors []float32, dim int, k int, metric distance.Metric, maxIter int, seed int64) ([]float32, error) {
	if dim <= 0 || k <= 0 {
		return nil, errors.New("kmeans: dim and k must be positive")
	}
	n := len(vectors) / dim
	if n < k {
		return nil, ErrTooFewVectors
	}

	distFunc, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := make([]float32, k*dim)

	perm := rng.Perm(n)
	for i := 0; i < k; i++ {
		copy(centroids[i*dim:(i+1)*dim], vectors[perm[i]*dim:(perm[i]+1)*dim])
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	counts := make([]int, k)
	sums := make([]float64, k*dim)

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := false

		// Assignment step
		for i := 0; i < n; i++ {
			best := nearest(vectors[i*dim:(i+1)*dim], centroids, dim, distFunc)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		if !changed {
			break
		}

		// Update step
		clear(sums)
		clear(counts)

		for i := 0; i < n; i++ {
			cluster := assignments[i]
			vec := vectors[i*dim : (i+1)*dim]
			for d := 0; d < dim; d++ {
				sums[cluster*dim+d] += float64(vec[d])
			}
			counts[cluster]++
		}

		for j := 0; j < k; j++ {
			if counts[j] > 0 {
				scale := 1.0 / float64(counts[j])
				for d := 0; d < dim; d++ {
					centroids[j*dim+d] = float32(sums[j*dim+d] * scale)
				}
			} else {
				idx := rng.Intn(n)
				copy(centroids[j*dim:(j+1)*dim], vectors[idx*dim:(idx+1)*dim])
			}
		}
	}

	return centroids, nil
}

// AssignPartition finds the closest centroid for a vector.
// Ties resolve to the lowest centroid index.
func AssignPartition(vec []float32, centroids []float32, dim int, metric distance.Metric) (int, error) {
	distFunc, err := distance.Provider(metric)
	if err != nil {
		return -1, err
	}
	return nearest(vec, centroids, dim, distFunc), nil
}

func nearest(vec []float32, centroids []float32, dim int, distFunc distance.Func) int {
	k := len(centroids) / dim
	best := -1
	minDist := float32(math.MaxFloat32)
	for j := 0; j < k; j++ {
		d := distFunc(vec, centroids[j*dim:(j+1)*dim])
		if best == -1 || d < minDist {
			minDist = d
			best = j
		}
	}
	return best
}

type centroidDist struct {
	id   int
	dist float32
}

// FindClosestCentroids returns the indices of the n closest centroids to the
// query vector, nearest first. Equal distances order by ascending index.
func FindClosestCentroids(query []float32, centroids []float32, dim int, n int, metric distance.Metric) ([]int, error) {
	k := len(centroids) / dim
	if n > k {
		n = k
	}

	distFunc, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	dists := make([]centroidDist, k)
	for i := 0; i < k; i++ {
		dists[i] = centroidDist{id: i, dist: distFunc(query, centroids[i*dim:(i+1)*dim])}
	}

	slices.SortFunc(dists, func(a, b centroidDist) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	result := make([]int, n)
	for i := 0; i < n; i++ {
		result[i] = dists[i].id
	}

	return result, nil
}
