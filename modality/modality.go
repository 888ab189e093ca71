package modality

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknown is returned when a string does not name a supported modality.
var ErrUnknown = errors.New("unknown modality")

// Modality identifies one biometric channel.
type Modality uint8

const (
	// Face embeddings are derived from a face photo.
	Face Modality = iota + 1
	// Voice embeddings are derived from a voice sample.
	Voice
	// Signature embeddings are derived from a handwritten signature image.
	Signature
)

// Count is the number of supported modalities.
const Count = 3

// Default decision thresholds (cosine distance). A result matches when its
// distance is strictly below the threshold.
const (
	ThresholdFace      float32 = 0.06
	ThresholdVoice     float32 = 0.25
	ThresholdSignature float32 = 0.1
)

// Default embedding dimensions.
const (
	DimensionFace      = 128
	DimensionVoice     = 192
	DimensionSignature = 128
)

// Config is the fixed configuration of a modality.
type Config struct {
	Modality Modality
	// Threshold is the exclusive upper bound on cosine distance for a match.
	Threshold float32
	// Dimension is the embedding length. Embeddings of other lengths are rejected.
	Dimension int
	// StorageKey names the collaborator's sample table for this modality.
	StorageKey string
	// IndexFile is the artifact file name, relative to the index directory.
	IndexFile string
}

// All returns every supported modality in declaration order.
func All() []Modality {
	return []Modality{Face, Voice, Signature}
}

// Parse converts a modality identifier ("face", "voice", "signature").
func Parse(s string) (Modality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "face":
		return Face, nil
	case "voice":
		return Voice, nil
	case "signature":
		return Signature, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknown, s)
	}
}

// Valid reports whether m is one of the supported modalities.
func (m Modality) Valid() bool {
	return m >= Face && m <= Signature
}

func (m Modality) String() string {
	switch m {
	case Face:
		return "face"
	case Voice:
		return "voice"
	case Signature:
		return "signature"
	default:
		return fmt.Sprintf("modality(%d)", uint8(m))
	}
}

// Config returns the built-in configuration of m.
// The zero Config is returned for an invalid modality.
func (m Modality) Config() Config {
	switch m {
	case Face:
		return Config{
			Modality:   Face,
			Threshold:  ThresholdFace,
			Dimension:  DimensionFace,
			StorageKey: "face_samples",
			IndexFile:  "face_ivf.idx",
		}
	case Voice:
		return Config{
			Modality:   Voice,
			Threshold:  ThresholdVoice,
			Dimension:  DimensionVoice,
			StorageKey: "voice_samples",
			IndexFile:  "voice_ivf.idx",
		}
	case Signature:
		return Config{
			Modality:   Signature,
			Threshold:  ThresholdSignature,
			Dimension:  DimensionSignature,
			StorageKey: "signature_samples",
			IndexFile:  "signature_ivf.idx",
		}
	default:
		return Config{}
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Modality) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Modality) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// DimensionError reports an embedding of the wrong length for its modality.
type DimensionError struct {
	Modality Modality
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s embedding: expected dimension %d, got %d", e.Modality, e.Expected, e.Actual)
}

// CheckDimension returns a *DimensionError when vec does not have the
// configured length.
func (c Config) CheckDimension(vec []float32) error {
	if len(vec) != c.Dimension {
		return &DimensionError{Modality: c.Modality, Expected: c.Dimension, Actual: len(vec)}
	}
	return nil
}
