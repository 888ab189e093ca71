package biomatch

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/biomatch/modality"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordBuild is called after each index rebuild with the number of
	// vectors indexed.
	RecordBuild(m modality.Modality, vectors int, duration time.Duration, err error)

	// RecordSearch is called after each match attempt. candidates is the
	// number of raw nearest neighbors, accepted the number of matches
	// returned.
	RecordSearch(m modality.Modality, candidates, accepted int, duration time.Duration, err error)

	// RecordDuplicateCheck is called after each duplicate check.
	RecordDuplicateCheck(m modality.Modality, duplicate bool, duration time.Duration, err error)

	// RecordAuditDrop is called when an audit entry could not be written.
	RecordAuditDrop(err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(modality.Modality, int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordSearch(modality.Modality, int, int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordDuplicateCheck(modality.Modality, bool, time.Duration, error) {}
func (NoopMetricsCollector) RecordAuditDrop(error)                                            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BuildCount       atomic.Int64
	BuildErrors      atomic.Int64
	BuildVectors     atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchMatches    atomic.Int64
	SearchTotalNanos atomic.Int64
	DuplicateChecks  atomic.Int64
	DuplicatesFound  atomic.Int64
	AuditDrops       atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(_ modality.Modality, vectors int, _ time.Duration, err error) {
	b.BuildCount.Add(1)
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.BuildVectors.Add(int64(vectors))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_ modality.Modality, _, accepted int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
		return
	}
	if accepted > 0 {
		b.SearchMatches.Add(1)
	}
}

// RecordDuplicateCheck implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDuplicateCheck(_ modality.Modality, duplicate bool, _ time.Duration, _ error) {
	b.DuplicateChecks.Add(1)
	if duplicate {
		b.DuplicatesFound.Add(1)
	}
}

// RecordAuditDrop implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAuditDrop(error) {
	b.AuditDrops.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:      b.BuildCount.Load(),
		BuildErrors:     b.BuildErrors.Load(),
		BuildVectors:    b.BuildVectors.Load(),
		SearchCount:     b.SearchCount.Load(),
		SearchErrors:    b.SearchErrors.Load(),
		SearchMatches:   b.SearchMatches.Load(),
		SearchAvgNanos:  b.getAvgSearchNanos(),
		DuplicateChecks: b.DuplicateChecks.Load(),
		DuplicatesFound: b.DuplicatesFound.Load(),
		AuditDrops:      b.AuditDrops.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgSearchNanos() int64 {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SearchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount      int64
	BuildErrors     int64
	BuildVectors    int64
	SearchCount     int64
	SearchErrors    int64
	SearchMatches   int64
	SearchAvgNanos  int64
	DuplicateChecks int64
	DuplicatesFound int64
	AuditDrops      int64
}
