package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/biomatch/modality"
)

// Outcome classifies how a search attempt ended.
type Outcome string

const (
	OutcomeMatched      Outcome = "matched"
	OutcomeNoMatch      Outcome = "no_match"
	OutcomeIndexMissing Outcome = "index_missing"
	OutcomeEmptyVector  Outcome = "empty_vector"
	OutcomeError        Outcome = "error"
)

// Entry is one search log record. Entries are append-only.
type Entry struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Modality  modality.Modality `json:"modality"`
	Operator  string            `json:"operator,omitempty"`
	SubjectID *int64            `json:"subject_id,omitempty"`
	SensorID  *int64            `json:"sensor_id,omitempty"`
	SampleID  *int64            `json:"sample_id,omitempty"`

	// CandidatesFound is the number of raw nearest-neighbor results.
	CandidatesFound int           `json:"candidates_found"`
	Latency         time.Duration `json:"latency_ns"`
	Threshold       float32       `json:"threshold"`
	Outcome         Outcome       `json:"outcome"`

	// Diagnostics carries free-form details (accepted count, best distance,
	// index build time, error text).
	Diagnostics map[string]any `json:"diagnostics,omitempty"`
}
