package audit

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
)

// Multi fans an entry out to every sink. All sinks are attempted; their
// errors are joined.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, e Entry) error {
		var errs []error
		for _, s := range sinks {
			if s == nil {
				continue
			}
			if err := s.Write(ctx, e); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// SlogSink writes entries as structured log records at Info level.
type SlogSink struct {
	Logger *slog.Logger
}

// Write implements Sink.
func (s SlogSink) Write(ctx context.Context, e Entry) error {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	attrs := []slog.Attr{
		slog.String("entry_id", e.ID.String()),
		slog.String("modality", e.Modality.String()),
		slog.String("outcome", string(e.Outcome)),
		slog.Int("candidates_found", e.CandidatesFound),
		slog.Duration("latency", e.Latency),
		slog.Float64("threshold", float64(e.Threshold)),
	}
	if e.Operator != "" {
		attrs = append(attrs, slog.String("operator", e.Operator))
	}
	if e.SubjectID != nil {
		attrs = append(attrs, slog.Int64("subject_id", *e.SubjectID))
	}
	if e.SensorID != nil {
		attrs = append(attrs, slog.Int64("sensor_id", *e.SensorID))
	}
	if e.SampleID != nil {
		attrs = append(attrs, slog.Int64("sample_id", *e.SampleID))
	}
	if len(e.Diagnostics) > 0 {
		attrs = append(attrs, slog.Any("diagnostics", e.Diagnostics))
	}
	l.LogAttrs(ctx, slog.LevelInfo, "biometric search", attrs...)
	return nil
}

// MemorySink keeps entries in memory.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

// Write implements Sink.
func (s *MemorySink) Write(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

// Entries returns a snapshot of the recorded entries.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}
