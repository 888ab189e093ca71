package ivf

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/biomatch/distance"
	"github.com/hupe1980/biomatch/internal/kmeans"
)

// Fit clusters vectors and builds the inverted lists.
//
// ids and vectors are aligned: vectors[i] belongs to ids[i]. Every vector is
// assigned to exactly one cluster (nearest centroid by squared L2, the
// native k-means distance), so the inverted lists partition the input.
// Within a cluster entries keep their input order.
func Fit(ctx context.Context, ids []int64, vectors [][]float32, cfg Config) (*Index, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyIndex
	}
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("ivf: %d ids for %d vectors", len(ids), len(vectors))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	dim := len(vectors[0])
	if dim == 0 {
		return nil, &ErrDimensionMismatch{Expected: 1, Actual: 0}
	}

	n := len(vectors)
	flat := make([]float32, 0, n*dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(v)}
		}
		flat = append(flat, v...)
	}

	k := min(cfg.NClusters, n)
	centroids, err := kmeans.TrainKMeans(ctx, flat, dim, k, distance.MetricL2, cfg.MaxIter, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("ivf: clustering: %w", err)
	}

	labels := make([]int, n)
	counts := make([]int32, k)
	for i := 0; i < n; i++ {
		c, err := kmeans.AssignPartition(flat[i*dim:(i+1)*dim], centroids, dim, distance.MetricL2)
		if err != nil {
			return nil, err
		}
		labels[i] = c
		counts[c]++
	}

	// Counting sort into the arena; stable within each cluster.
	offsets := make([]int32, k+1)
	for c := 0; c < k; c++ {
		offsets[c+1] = offsets[c] + counts[c]
	}
	next := make([]int32, k)
	copy(next, offsets[:k])

	outIDs := make([]int64, n)
	outVecs := make([]float32, n*dim)
	for i := 0; i < n; i++ {
		pos := next[labels[i]]
		next[labels[i]]++
		outIDs[pos] = ids[i]
		copy(outVecs[int(pos)*dim:], flat[i*dim:(i+1)*dim])
	}

	cfg.NClusters = k

	return &Index{
		cfg:       cfg,
		dim:       dim,
		builtAt:   time.Now().UTC(),
		centroids: centroids,
		offsets:   offsets,
		ids:       outIDs,
		vectors:   outVecs,
		trained:   true,
	}, nil
}
