package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/biomatch/modality"
)

// ErrSubjectNotFound is returned when writing a sample for an unknown subject.
var ErrSubjectNotFound = errors.New("store: subject not found")

// Status is the lifecycle state of an enrolled sample.
//
// The only transition is StatusActive -> StatusInactive, taken when a newer
// sample replaces it. Deactivation is terminal.
type Status uint8

const (
	StatusActive Status = iota + 1
	StatusInactive
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// ParseStatus converts the textual status used in storage.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "active":
		return StatusActive, nil
	case "inactive":
		return StatusInactive, nil
	default:
		return 0, fmt.Errorf("store: unknown sample status %q", s)
	}
}

// Vector is one active embedding.
type Vector struct {
	SubjectID int64
	Embedding []float32
}

// Sample is an enrolled biometric sample.
type Sample struct {
	ID         int64
	SubjectID  int64
	Modality   modality.Modality
	Embedding  []float32
	Status     Status
	RecordedAt time.Time
}

// VectorStore supplies the embeddings of all active samples of a modality.
type VectorStore interface {
	FetchActiveVectors(ctx context.Context, m modality.Modality) ([]Vector, error)
}

// IdentityResolver maps subject ids to display identities. Ids whose sample
// of modality m is not active are omitted from the result; active samples of
// other modalities do not count.
type IdentityResolver interface {
	ResolveActiveIdentities(ctx context.Context, m modality.Modality, ids *roaring64.Bitmap) (map[int64]string, error)
}

// SampleWriter persists a new active sample for (subjectID, m) and
// deactivates the previously active one, atomically. It returns the id of
// the new sample.
type SampleWriter interface {
	SaveSample(ctx context.Context, subjectID int64, m modality.Modality, embedding []float32) (int64, error)
}

// StorageError reports a failure inside a storage collaborator. The
// operation that hit it was aborted.
type StorageError struct {
	Op       string
	Modality modality.Modality
	Err      error
}

func (e *StorageError) Error() string {
	if e.Modality.Valid() {
		return fmt.Sprintf("storage: %s (%s): %v", e.Op, e.Modality, e.Err)
	}
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
