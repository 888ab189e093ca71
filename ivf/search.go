package ivf

import (
	"cmp"
	"slices"

	"github.com/hupe1980/biomatch/distance"
	"github.com/hupe1980/biomatch/internal/kmeans"
)

// Search returns up to TopK nearest subjects to query, ordered by ascending
// cosine distance with ties broken by ascending subject id.
func (idx *Index) Search(query []float32) ([]Result, error) {
	if !idx.Trained() {
		return nil, ErrIndexNotTrained
	}
	return idx.SearchK(query, idx.cfg.TopK)
}

// SearchK is Search with an explicit result limit.
func (idx *Index) SearchK(query []float32, k int) ([]Result, error) {
	if !idx.Trained() {
		return nil, ErrIndexNotTrained
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(query) != idx.dim {
		return nil, &ErrDimensionMismatch{Expected: idx.dim, Actual: len(query)}
	}

	probes, err := kmeans.FindClosestCentroids(query, idx.centroids, idx.dim, idx.cfg.NProbe, distance.MetricCosine)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, c := range probes {
		for i := idx.offsets[c]; i < idx.offsets[c+1]; i++ {
			results = append(results, Result{
				SubjectID: idx.ids[i],
				Distance:  distance.Cosine(query, idx.vector(int(i))),
			})
		}
	}

	return rank(results, k), nil
}

func rank(results []Result, k int) []Result {
	slices.SortFunc(results, compareResults)
	if len(results) > k {
		results = results[:k]
	}
	return results
}

func compareResults(a, b Result) int {
	if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	return cmp.Compare(a.SubjectID, b.SubjectID)
}
