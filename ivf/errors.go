package ivf

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyIndex is returned by Fit when no vectors are supplied.
	ErrEmptyIndex = errors.New("ivf: no vectors to index")

	// ErrIndexNotTrained is returned when searching or saving an index that
	// was never populated by Fit or Load.
	ErrIndexNotTrained = errors.New("ivf: index not trained")

	// ErrIndexNotFound is returned by Load when the artifact does not exist.
	ErrIndexNotFound = errors.New("ivf: index not found")

	// ErrIndexCorrupt is returned by Load when the artifact cannot be trusted:
	// bad magic, schema version mismatch, truncation or checksum mismatch.
	ErrIndexCorrupt = errors.New("ivf: index corrupt")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("ivf: k must be positive")

	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("ivf: invalid config")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("ivf: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
