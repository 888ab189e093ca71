package match

import (
	"errors"

	"github.com/hupe1980/biomatch/ivf"
	"github.com/hupe1980/biomatch/modality"
)

// ErrDuplicateBiometric is returned by enrollment when the embedding already
// matches a different subject.
var ErrDuplicateBiometric = errors.New("duplicate biometric")

// Check reports whether embedding matches an enrolled subject other than
// candidate.
//
// Every indexed entry within the probed clusters is considered, not just
// the top-k. A nil candidate denotes a brand-new enrollment: any match at
// all is a duplicate. A match belonging to candidate itself (a subject
// re-enrolling their own biometric) is never a duplicate.
func Check(idx *ivf.Index, candidate *int64, embedding []float32, cfg modality.Config) (bool, error) {
	if !idx.Trained() {
		return false, ivf.ErrIndexNotTrained
	}
	if idx.Len() == 0 {
		return false, nil
	}

	results, err := idx.SearchK(embedding, idx.Len())
	if err != nil {
		return false, err
	}

	for _, r := range Filter(results, cfg.Threshold) {
		if candidate == nil || r.SubjectID != *candidate {
			return true, nil
		}
	}
	return false, nil
}
