package ivf

import "fmt"

// Default index parameters.
const (
	DefaultNClusters = 1
	DefaultNProbe    = 5
	DefaultTopK      = 5
	DefaultMaxIter   = 300
)

// Config holds the index parameters.
type Config struct {
	// NClusters is the number of k-means clusters. 1 turns the index into an
	// exhaustive scan. Fit clamps it to the number of vectors.
	NClusters int
	// NProbe is the number of closest clusters scanned per query.
	NProbe int
	// TopK is the maximum number of results returned by Search.
	TopK int
	// MaxIter bounds the k-means iterations. Not persisted.
	MaxIter int
	// Seed makes clustering deterministic. Not persisted.
	Seed int64
}

// DefaultConfig returns the default index parameters.
func DefaultConfig() Config {
	return Config{
		NClusters: DefaultNClusters,
		NProbe:    DefaultNProbe,
		TopK:      DefaultTopK,
		MaxIter:   DefaultMaxIter,
	}
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	switch {
	case c.NClusters <= 0:
		return fmt.Errorf("%w: n_clusters must be positive, got %d", ErrInvalidConfig, c.NClusters)
	case c.NProbe <= 0:
		return fmt.Errorf("%w: n_probe must be positive, got %d", ErrInvalidConfig, c.NProbe)
	case c.TopK <= 0:
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidConfig, c.TopK)
	case c.MaxIter < 0:
		return fmt.Errorf("%w: max_iter must not be negative, got %d", ErrInvalidConfig, c.MaxIter)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.MaxIter == 0 {
		c.MaxIter = DefaultMaxIter
	}
	return c
}
