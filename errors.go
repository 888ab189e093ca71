package biomatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/biomatch/ivf"
	"github.com/hupe1980/biomatch/match"
	"github.com/hupe1980/biomatch/modality"
	"github.com/hupe1980/biomatch/persistence"
	"github.com/hupe1980/biomatch/store"
)

var (
	// ErrEmptyVector is returned when the extractor produced no embedding.
	// No match is attempted.
	ErrEmptyVector = errors.New("biomatch: empty embedding")

	// ErrUnknownModality is returned for a modality outside the closed set.
	ErrUnknownModality = modality.ErrUnknown

	// ErrNoSampleWriter is returned by Enroll when the engine was built
	// without WithSampleWriter.
	ErrNoSampleWriter = errors.New("biomatch: no sample writer configured")

	ErrEmptyIndex         = ivf.ErrEmptyIndex
	ErrIndexNotFound      = ivf.ErrIndexNotFound
	ErrIndexNotTrained    = ivf.ErrIndexNotTrained
	ErrIndexCorrupt       = ivf.ErrIndexCorrupt
	ErrDuplicateBiometric = match.ErrDuplicateBiometric
)

// StorageError reports a failure inside a storage collaborator.
type StorageError = store.StorageError

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *ivf.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var mm *modality.DimensionError
	if errors.As(err, &mm) {
		return &ErrDimensionMismatch{Expected: mm.Expected, Actual: mm.Actual, cause: err}
	}
	var cm *persistence.ChecksumMismatchError
	if errors.As(err, &cm) && !errors.Is(err, ErrIndexCorrupt) {
		return fmt.Errorf("%w: %w", ErrIndexCorrupt, err)
	}

	return err
}

// IsRejected reports whether err means the input itself is unusable and
// retrying with the same input will fail again.
func IsRejected(err error) bool {
	var dm *ErrDimensionMismatch
	return errors.Is(err, ErrEmptyVector) ||
		errors.Is(err, ErrDuplicateBiometric) ||
		errors.Is(err, ErrUnknownModality) ||
		errors.Is(err, ErrEmptyIndex) ||
		errors.As(err, &dm)
}

// IsTransient reports whether err came from a storage collaborator or an
// interrupted call, so that a retry may succeed.
func IsTransient(err error) bool {
	var se *StorageError
	return errors.As(err, &se) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// NeedsRepair reports whether err means the index artifact must be rebuilt
// by an operator.
func NeedsRepair(err error) bool {
	return errors.Is(err, ErrIndexCorrupt) || errors.Is(err, ErrIndexNotTrained)
}
