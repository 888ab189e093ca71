package biomatch

import (
	"github.com/hupe1980/biomatch/audit"
	"github.com/hupe1980/biomatch/blobstore"
	"github.com/hupe1980/biomatch/ivf"
	"github.com/hupe1980/biomatch/modality"
	"github.com/hupe1980/biomatch/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// LoadPolicy controls how Match obtains the index artifact.
type LoadPolicy uint8

const (
	// LoadPolicyAlways reads the artifact from disk on every search, so a
	// rebuild by any process is visible to the next search.
	LoadPolicyAlways LoadPolicy = iota
	// LoadPolicyCached keeps the last loaded index in memory and reloads it
	// when the artifact's modification time or size changes.
	LoadPolicyCached
)

func (p LoadPolicy) String() string {
	switch p {
	case LoadPolicyAlways:
		return "always"
	case LoadPolicyCached:
		return "cached"
	default:
		return "unknown"
	}
}

type options struct {
	indexDir         string
	ivf              ivf.Config
	thresholds       [modality.Count + 1]float32
	dimensions       [modality.Count + 1]int
	loadPolicy       LoadPolicy
	metricsCollector MetricsCollector
	logger           *Logger
	audit            *audit.Logger
	samples          store.SampleWriter
	publisher        *blobstore.Publisher
	restore          bool
	tracer           trace.Tracer
}

func defaultOptions() options {
	return options{
		indexDir:         ".",
		ivf:              ivf.DefaultConfig(),
		loadPolicy:       LoadPolicyAlways,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		tracer:           otel.Tracer("github.com/hupe1980/biomatch"),
	}
}

// Option configures an Engine.
type Option func(*options)

// WithIndexDir sets the directory holding the per-modality index artifacts.
// Defaults to the working directory.
func WithIndexDir(dir string) Option {
	return func(o *options) {
		o.indexDir = dir
	}
}

// WithIVFConfig sets cluster count, probe count, result size and k-means
// parameters used by BuildIndex. Searches use the values stored in the
// artifact.
func WithIVFConfig(cfg ivf.Config) Option {
	return func(o *options) {
		o.ivf = cfg
	}
}

// WithThreshold overrides the acceptance threshold of a modality for the
// whole deployment.
func WithThreshold(m modality.Modality, threshold float32) Option {
	return func(o *options) {
		if m.Valid() {
			o.thresholds[m] = threshold
		}
	}
}

// WithDimension overrides the embedding dimension expected for a modality.
// Use it when an extractor with a different output size is deployed.
func WithDimension(m modality.Modality, dim int) Option {
	return func(o *options) {
		if m.Valid() {
			o.dimensions[m] = dim
		}
	}
}

// WithLoadPolicy selects how Match obtains the index.
func WithLoadPolicy(p LoadPolicy) Option {
	return func(o *options) {
		o.loadPolicy = p
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metricsCollector = mc
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAudit sets the audit logger every match attempt is recorded to.
func WithAudit(a *audit.Logger) Option {
	return func(o *options) {
		o.audit = a
	}
}

// WithSampleWriter enables Enroll.
func WithSampleWriter(w store.SampleWriter) Option {
	return func(o *options) {
		o.samples = w
	}
}

// WithPublisher uploads every rebuilt artifact through p.
func WithPublisher(p *blobstore.Publisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}

// WithRestoreFromPublisher makes Match fetch a missing local artifact from
// the publisher before treating the index as missing. Requires WithPublisher.
func WithRestoreFromPublisher() Option {
	return func(o *options) {
		o.restore = true
	}
}

// WithTracer sets the OpenTelemetry tracer. Defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}
