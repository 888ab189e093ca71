package biomatch

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hupe1980/biomatch/audit"
	"github.com/hupe1980/biomatch/blobstore"
	"github.com/hupe1980/biomatch/ivf"
	"github.com/hupe1980/biomatch/match"
	"github.com/hupe1980/biomatch/modality"
	"github.com/hupe1980/biomatch/persistence"
	"github.com/hupe1980/biomatch/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Engine builds and searches the per-modality indexes.
//
// Engine is safe for concurrent use. Searches never block on a rebuild:
// readers see either the previous or the new artifact.
type Engine struct {
	vectors    store.VectorStore
	identities store.IdentityResolver
	opts       options

	cache [modality.Count + 1]atomic.Pointer[cachedIndex]
}

type cachedIndex struct {
	idx  *ivf.Index
	info os.FileInfo
}

// current reports whether fi still describes the cached artifact. Saves
// rename a new file into place, so a rebuild always changes the file identity.
func (c *cachedIndex) current(fi os.FileInfo) bool {
	return os.SameFile(c.info, fi) && c.info.ModTime().Equal(fi.ModTime()) && c.info.Size() == fi.Size()
}

// New creates an Engine reading active vectors from vectors and resolving
// matched subject ids through identities.
func New(vectors store.VectorStore, identities store.IdentityResolver, optFns ...Option) *Engine {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{
		vectors:    vectors,
		identities: identities,
		opts:       opts,
	}
}

// Config returns the effective configuration of a modality, including
// deployment overrides.
func (e *Engine) Config(m modality.Modality) modality.Config {
	cfg := m.Config()
	if !m.Valid() {
		return cfg
	}
	if t := e.opts.thresholds[m]; t > 0 {
		cfg.Threshold = t
	}
	if d := e.opts.dimensions[m]; d > 0 {
		cfg.Dimension = d
	}
	return cfg
}

// IndexPath returns the artifact path of a modality.
func (e *Engine) IndexPath(m modality.Modality) string {
	return filepath.Join(e.opts.indexDir, m.Config().IndexFile)
}

func publishName(cfg modality.Config) string {
	return path.Join(cfg.Modality.String(), cfg.IndexFile)
}

func (e *Engine) startSpan(ctx context.Context, name string, m modality.Modality) (context.Context, trace.Span) {
	return e.opts.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("biomatch.modality", m.String()),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// BuildIndex rebuilds the index of m from the currently active samples and
// atomically replaces the artifact.
//
// With no active samples it returns ErrEmptyIndex and leaves any existing
// artifact untouched. Concurrent rebuilds of the same modality, also from
// other processes, are serialized.
func (e *Engine) BuildIndex(ctx context.Context, m modality.Modality) (err error) {
	if !m.Valid() {
		return ErrUnknownModality
	}
	ctx, span := e.startSpan(ctx, "biomatch.BuildIndex", m)
	start := time.Now()
	n := 0
	defer func() {
		took := time.Since(start)
		e.opts.metricsCollector.RecordBuild(m, n, took, err)
		e.opts.logger.LogBuild(ctx, m, n, took, err)
		endSpan(span, err)
	}()

	cfg := e.Config(m)
	p := e.IndexPath(m)

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	lock, err := persistence.Lock(p)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	vecs, err := e.vectors.FetchActiveVectors(ctx, m)
	if err != nil {
		return asStorageError(err, "fetch active vectors", m)
	}
	n = len(vecs)

	ids := make([]int64, len(vecs))
	data := make([][]float32, len(vecs))
	for i, v := range vecs {
		if err := cfg.CheckDimension(v.Embedding); err != nil {
			return translateError(err)
		}
		ids[i] = v.SubjectID
		data[i] = v.Embedding
	}

	idx, err := ivf.Fit(ctx, ids, data, e.opts.ivf)
	if err != nil {
		return translateError(err)
	}
	if err := ivf.Save(idx, p); err != nil {
		return err
	}
	e.cache[m].Store(nil)
	span.SetAttributes(
		attribute.Int("biomatch.vectors", n),
		attribute.Int("biomatch.clusters", idx.Config().NClusters),
		attribute.Int("biomatch.max_cluster_size", slices.Max(idx.ClusterSizes())),
	)

	if pub := e.opts.publisher; pub != nil {
		name := publishName(cfg)
		perr := pub.Publish(ctx, name, idx)
		e.opts.logger.LogPublish(ctx, m, pub.Key(name), perr)
	}
	return nil
}

// BuildAll rebuilds every modality concurrently. Modalities without active
// samples are skipped.
func (e *Engine) BuildAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range modality.All() {
		g.Go(func() error {
			err := e.BuildIndex(gctx, m)
			if errors.Is(err, ErrEmptyIndex) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// Match searches the index of m for embedding and returns the enrolled
// subjects closer than the modality threshold, nearest first.
//
// A missing index yields no matches and no error. Every attempt, successful
// or not, is recorded to the audit logger.
func (e *Engine) Match(ctx context.Context, sess Session, embedding []float32, m modality.Modality) (matches []match.Match, err error) {
	ctx, span := e.startSpan(ctx, "biomatch.Match", m)
	start := time.Now()
	cfg := e.Config(m)

	entry := audit.Entry{
		Modality:  m,
		Operator:  sess.Operator,
		SubjectID: sess.SubjectID,
		SensorID:  sess.SensorID,
		SampleID:  sess.SampleID,
		Threshold: cfg.Threshold,
		Outcome:   audit.OutcomeNoMatch,
	}
	candidates := 0

	defer func() {
		took := time.Since(start)
		entry.Latency = took
		entry.CandidatesFound = candidates
		if err != nil && entry.Outcome != audit.OutcomeEmptyVector {
			entry.Outcome = audit.OutcomeError
			entry.Diagnostics = map[string]any{"error": err.Error()}
		}
		e.opts.audit.Record(ctx, entry)
		e.opts.metricsCollector.RecordSearch(m, candidates, len(matches), took, err)
		e.opts.logger.LogSearch(ctx, m, candidates, len(matches), err)
		endSpan(span, err)
	}()

	if !m.Valid() {
		return nil, ErrUnknownModality
	}
	if len(embedding) == 0 {
		entry.Outcome = audit.OutcomeEmptyVector
		return nil, ErrEmptyVector
	}
	if err := cfg.CheckDimension(embedding); err != nil {
		return nil, translateError(err)
	}

	idx, err := e.loadIndex(ctx, cfg)
	if errors.Is(err, ErrIndexNotFound) {
		entry.Outcome = audit.OutcomeIndexMissing
		return []match.Match{}, nil
	}
	if err != nil {
		return nil, translateError(err)
	}

	results, err := idx.Search(embedding)
	if err != nil {
		return nil, translateError(err)
	}
	candidates = len(results)

	matches, err = match.Decide(ctx, results, cfg, e.identities)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []match.Match{}
	}

	diag := map[string]any{
		"accepted":       len(matches),
		"index_built_at": idx.BuiltAt().Format(time.RFC3339Nano),
	}
	if len(results) > 0 {
		diag["best_distance"] = results[0].Distance
	}
	entry.Diagnostics = diag
	if len(matches) > 0 {
		entry.Outcome = audit.OutcomeMatched
	}
	span.SetAttributes(
		attribute.Int("biomatch.candidates", candidates),
		attribute.Int("biomatch.accepted", len(matches)),
	)
	return matches, nil
}

// IsDuplicate reports whether embedding already matches an enrolled subject
// other than candidate. A nil candidate denotes a new enrollment, for which
// any match is a duplicate. Without an index nothing is enrolled yet and
// the answer is false.
func (e *Engine) IsDuplicate(ctx context.Context, candidate *int64, embedding []float32, m modality.Modality) (dup bool, err error) {
	if !m.Valid() {
		return false, ErrUnknownModality
	}
	ctx, span := e.startSpan(ctx, "biomatch.IsDuplicate", m)
	start := time.Now()
	defer func() {
		e.opts.metricsCollector.RecordDuplicateCheck(m, dup, time.Since(start), err)
		span.SetAttributes(attribute.Bool("biomatch.duplicate", dup))
		endSpan(span, err)
	}()

	if len(embedding) == 0 {
		return false, ErrEmptyVector
	}
	cfg := e.Config(m)
	if err := cfg.CheckDimension(embedding); err != nil {
		return false, translateError(err)
	}

	idx, err := e.loadIndex(ctx, cfg)
	if errors.Is(err, ErrIndexNotFound) {
		return false, nil
	}
	if err != nil {
		return false, translateError(err)
	}

	dup, err = match.Check(idx, candidate, embedding, cfg)
	return dup, translateError(err)
}

// Enroll stores embedding as the active sample of subjectID for m and
// rebuilds the index. The previous active sample of the subject is
// deactivated by the sample writer.
//
// Enrollment is refused with ErrDuplicateBiometric when the embedding
// matches a different subject; nothing is written in that case.
func (e *Engine) Enroll(ctx context.Context, sess Session, subjectID int64, m modality.Modality, embedding []float32) (int64, error) {
	if e.opts.samples == nil {
		return 0, ErrNoSampleWriter
	}
	dup, err := e.IsDuplicate(ctx, &subjectID, embedding, m)
	if err != nil {
		return 0, err
	}
	log := e.opts.logger.WithModality(m).WithSubject(subjectID)
	if dup {
		log.WarnContext(ctx, "enrollment rejected: duplicate biometric", "operator", sess.Operator)
		return 0, ErrDuplicateBiometric
	}

	sampleID, err := e.opts.samples.SaveSample(ctx, subjectID, m, embedding)
	if err != nil {
		return 0, asStorageError(err, "save sample", m)
	}
	log.InfoContext(ctx, "sample enrolled", "sample_id", sampleID, "operator", sess.Operator)

	if err := e.BuildIndex(ctx, m); err != nil {
		return sampleID, err
	}
	return sampleID, nil
}

func asStorageError(err error, op string, m modality.Modality) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Modality: m, Err: err}
}

// loadIndex returns the index of cfg.Modality according to the load policy.
func (e *Engine) loadIndex(ctx context.Context, cfg modality.Config) (*ivf.Index, error) {
	p := e.IndexPath(cfg.Modality)

	if e.opts.loadPolicy != LoadPolicyCached {
		idx, err := ivf.Load(p)
		if errors.Is(err, ErrIndexNotFound) {
			return e.restore(ctx, cfg, p)
		}
		return idx, err
	}

	slot := &e.cache[cfg.Modality]
	fi, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		slot.Store(nil)
		return e.restore(ctx, cfg, p)
	}
	if err != nil {
		return nil, err
	}
	if c := slot.Load(); c != nil && c.current(fi) {
		return c.idx, nil
	}

	idx, err := ivf.Load(p)
	if err != nil {
		slot.Store(nil)
		return nil, err
	}
	slot.Store(&cachedIndex{idx: idx, info: fi})
	return idx, nil
}

// restore fetches a missing artifact from the publisher when enabled. It
// holds the rebuild lock, and an artifact that appeared meanwhile wins over
// the published copy.
func (e *Engine) restore(ctx context.Context, cfg modality.Config, p string) (*ivf.Index, error) {
	pub := e.opts.publisher
	if !e.opts.restore || pub == nil {
		return nil, ErrIndexNotFound
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}
	lock, err := persistence.Lock(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	idx, err := ivf.Load(p)
	if !errors.Is(err, ErrIndexNotFound) {
		return idx, err
	}

	idx, err = pub.Restore(ctx, publishName(cfg), p)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, ErrIndexNotFound
	}
	if err != nil {
		return nil, err
	}
	e.opts.logger.InfoContext(ctx, "index restored from publisher",
		"modality", cfg.Modality.String(),
		"key", pub.Key(publishName(cfg)),
	)
	return idx, nil
}
