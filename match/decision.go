package match

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/biomatch/ivf"
	"github.com/hupe1980/biomatch/modality"
	"github.com/hupe1980/biomatch/store"
)

// Match is an accepted result resolved to a display identity.
type Match struct {
	SubjectID int64
	Identity  string
	Distance  float32
}

// Filter returns the results with Distance < threshold, preserving order.
func Filter(results []ivf.Result, threshold float32) []ivf.Result {
	var out []ivf.Result
	for _, r := range results {
		if r.Distance < threshold {
			out = append(out, r)
		}
	}
	return out
}

// Decide filters results by cfg.Threshold and resolves the surviving subject
// ids through resolver. Ids the resolver omits (inactive or unknown) are
// dropped. The input order (ascending distance, id tie-break) is preserved.
//
// The resolver is not called when nothing survives the threshold. A
// resolver failure is returned as *store.StorageError.
func Decide(ctx context.Context, results []ivf.Result, cfg modality.Config, resolver store.IdentityResolver) ([]Match, error) {
	accepted := Filter(results, cfg.Threshold)
	if len(accepted) == 0 {
		return nil, nil
	}

	ids := roaring64.New()
	for _, r := range accepted {
		ids.Add(uint64(r.SubjectID))
	}

	identities, err := resolver.ResolveActiveIdentities(ctx, cfg.Modality, ids)
	if err != nil {
		return nil, &store.StorageError{Op: "resolve active identities", Modality: cfg.Modality, Err: err}
	}

	matches := make([]Match, 0, len(accepted))
	for _, r := range accepted {
		name, ok := identities[r.SubjectID]
		if !ok {
			continue
		}
		matches = append(matches, Match{SubjectID: r.SubjectID, Identity: name, Distance: r.Distance})
	}
	return matches, nil
}
