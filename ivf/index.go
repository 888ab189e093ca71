package ivf

import (
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Index is a trained inverted-file index. The zero value is an untrained
// index; every query method on it returns ErrIndexNotTrained.
type Index struct {
	cfg     Config
	dim     int
	builtAt time.Time

	centroids []float32 // nClusters * dim
	offsets   []int32   // nClusters + 1; cluster c owns entries [offsets[c], offsets[c+1])
	ids       []int64   // grouped by cluster
	vectors   []float32 // len(ids) * dim, same order as ids

	trained bool
}

// Result is one ranked neighbor.
type Result struct {
	SubjectID int64
	Distance  float32
}

// Trained reports whether the index was populated by Fit or Load.
func (idx *Index) Trained() bool {
	return idx != nil && idx.trained
}

// Config returns the persisted parameters. NClusters is the effective
// cluster count after clamping.
func (idx *Index) Config() Config {
	return idx.cfg
}

// Dim returns the embedding dimension.
func (idx *Index) Dim() int {
	return idx.dim
}

// Len returns the number of indexed embeddings.
func (idx *Index) Len() int {
	return len(idx.ids)
}

// BuiltAt returns the time Fit produced the index.
func (idx *Index) BuiltAt() time.Time {
	return idx.builtAt
}

// ClusterSizes returns the number of entries per cluster.
func (idx *Index) ClusterSizes() []int {
	sizes := make([]int, idx.cfg.NClusters)
	for c := range sizes {
		sizes[c] = int(idx.offsets[c+1] - idx.offsets[c])
	}
	return sizes
}

// Subjects returns the set of subject ids present in the index.
func (idx *Index) Subjects() *roaring64.Bitmap {
	bm := roaring64.New()
	for _, id := range idx.ids {
		bm.Add(uint64(id))
	}
	return bm
}

func (idx *Index) vector(i int) []float32 {
	return idx.vectors[i*idx.dim : (i+1)*idx.dim]
}
