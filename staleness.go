package biomatch

import (
	"context"
	"errors"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/biomatch/ivf"
	"github.com/hupe1980/biomatch/modality"
)

// Staleness compares an index artifact with the live active sample set.
type Staleness struct {
	Modality modality.Modality
	// BuiltAt is zero when no index exists.
	BuiltAt time.Time
	Indexed uint64
	Active  uint64
	// Stale lists indexed subjects that no longer have an active sample.
	// Match drops them during identity resolution until the next rebuild.
	Stale []int64
	// Missing lists active subjects not yet in the index.
	Missing []int64
}

// Fresh reports whether the index covers exactly the active subjects.
func (s Staleness) Fresh() bool {
	return len(s.Stale) == 0 && len(s.Missing) == 0 && !s.BuiltAt.IsZero()
}

// Staleness reports how far the index of m has drifted from the active
// samples. A missing index reports every active subject as missing.
func (e *Engine) Staleness(ctx context.Context, m modality.Modality) (Staleness, error) {
	if !m.Valid() {
		return Staleness{}, ErrUnknownModality
	}
	out := Staleness{Modality: m}

	indexed := roaring64.New()
	idx, err := ivf.Load(e.IndexPath(m))
	switch {
	case errors.Is(err, ErrIndexNotFound):
	case err != nil:
		return out, translateError(err)
	default:
		indexed = idx.Subjects()
		out.BuiltAt = idx.BuiltAt()
	}

	vecs, err := e.vectors.FetchActiveVectors(ctx, m)
	if err != nil {
		return out, asStorageError(err, "fetch active vectors", m)
	}
	active := roaring64.New()
	for _, v := range vecs {
		active.Add(uint64(v.SubjectID))
	}

	out.Indexed = indexed.GetCardinality()
	out.Active = active.GetCardinality()
	out.Stale = toIDs(roaring64.AndNot(indexed, active))
	out.Missing = toIDs(roaring64.AndNot(active, indexed))
	return out, nil
}

func toIDs(b *roaring64.Bitmap) []int64 {
	ids := make([]int64, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		ids = append(ids, int64(it.Next()))
	}
	return ids
}
