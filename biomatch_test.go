package biomatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/biomatch/audit"
	"github.com/hupe1980/biomatch/blobstore"
	"github.com/hupe1980/biomatch/ivf"
	"github.com/hupe1980/biomatch/modality"
	"github.com/hupe1980/biomatch/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	eng     *Engine
	store   *store.Memory
	sink    *audit.MemorySink
	metrics *BasicMetricsCollector
	dir     string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:   store.NewMemory(),
		sink:    &audit.MemorySink{},
		metrics: &BasicMetricsCollector{},
		dir:     t.TempDir(),
	}
	cfg := ivf.DefaultConfig()
	cfg.NProbe = 1
	cfg.TopK = 2

	base := []Option{
		WithIndexDir(f.dir),
		WithIVFConfig(cfg),
		WithDimension(modality.Face, 3),
		WithAudit(audit.NewLogger(f.sink)),
		WithMetrics(f.metrics),
		WithSampleWriter(f.store),
	}
	f.eng = New(f.store, f.store, append(base, opts...)...)
	return f
}

func (f *fixture) seed(t *testing.T, m modality.Modality, id int64, emb []float32) {
	t.Helper()
	f.store.AddSubject(id, fmt.Sprintf("subject-%d", id))
	_, err := f.store.SaveSample(context.Background(), id, m, emb)
	require.NoError(t, err)
}

func seedScenario(t *testing.T, f *fixture) {
	t.Helper()
	f.seed(t, modality.Face, 1, []float32{1, 0, 0})
	f.seed(t, modality.Face, 2, []float32{0, 1, 0})
	f.seed(t, modality.Face, 3, []float32{0.999, 0.045, 0})
}

func TestEngine_EndToEndScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedScenario(t, f)

	require.NoError(t, f.eng.BuildIndex(ctx, modality.Face))

	matches, err := f.eng.Match(ctx, Session{Operator: "gate-1"}, []float32{1, 0, 0}, modality.Face)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, int64(1), matches[0].SubjectID)
	assert.InDelta(t, 0, matches[0].Distance, 1e-6)
	assert.Equal(t, "subject-1", matches[0].Identity)

	assert.Equal(t, int64(3), matches[1].SubjectID)
	assert.Greater(t, matches[1].Distance, float32(0))
	assert.Less(t, matches[1].Distance, modality.ThresholdFace)

	entries := f.sink.Entries()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, modality.Face, e.Modality)
	assert.Equal(t, "gate-1", e.Operator)
	assert.Equal(t, 2, e.CandidatesFound)
	assert.Equal(t, audit.OutcomeMatched, e.Outcome)
	assert.Equal(t, modality.ThresholdFace, e.Threshold)
	assert.Equal(t, 2, e.Diagnostics["accepted"])
	assert.NotEqual(t, [16]byte{}, [16]byte(e.ID))
}

func TestEngine_MissingIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sensor := ID(9)
	matches, err := f.eng.Match(ctx, Session{SensorID: sensor}, []float32{1, 0, 0}, modality.Face)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.NotNil(t, matches)

	entries := f.sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 0, entries[0].CandidatesFound)
	assert.Equal(t, audit.OutcomeIndexMissing, entries[0].Outcome)
	assert.Equal(t, int64(9), *entries[0].SensorID)

	dup, err := f.eng.IsDuplicate(ctx, nil, []float32{1, 0, 0}, modality.Face)
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestEngine_EmptyVector(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.eng.Match(ctx, Session{}, nil, modality.Face)
	assert.ErrorIs(t, err, ErrEmptyVector)
	assert.True(t, IsRejected(err))

	entries := f.sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.OutcomeEmptyVector, entries[0].Outcome)

	_, err = f.eng.IsDuplicate(ctx, nil, []float32{}, modality.Face)
	assert.ErrorIs(t, err, ErrEmptyVector)
}

func TestEngine_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.eng.Match(ctx, Session{}, []float32{1, 0}, modality.Face)
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Actual)
	assert.True(t, IsRejected(err))

	entries := f.sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.OutcomeError, entries[0].Outcome)
}

func TestEngine_UnknownModality(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.ErrorIs(t, f.eng.BuildIndex(ctx, modality.Modality(0)), ErrUnknownModality)
	_, err := f.eng.Match(ctx, Session{}, []float32{1}, modality.Modality(42))
	assert.ErrorIs(t, err, ErrUnknownModality)
	entries := f.sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.OutcomeError, entries[0].Outcome)
	assert.Equal(t, modality.Modality(42), entries[0].Modality)
	_, err = f.eng.Staleness(ctx, modality.Modality(0))
	assert.ErrorIs(t, err, ErrUnknownModality)
}

func TestEngine_QueryEqualsStoredVector(t *testing.T) {
	ctx := context.Background()
	cfg := ivf.DefaultConfig()
	cfg.NClusters = 4
	cfg.Seed = 7
	f := newFixture(t, WithIVFConfig(cfg))

	vecs := map[int64][]float32{
		1: {1, 0, 0}, 2: {0, 1, 0}, 3: {0, 0, 1}, 4: {1, 1, 0},
		5: {0, 1, 1}, 6: {1, 0, 1}, 7: {-1, 0, 0}, 8: {0, -1, 0},
	}
	for id, v := range vecs {
		f.seed(t, modality.Face, id, v)
	}
	require.NoError(t, f.eng.BuildIndex(ctx, modality.Face))

	for id, v := range vecs {
		matches, err := f.eng.Match(ctx, Session{}, v, modality.Face)
		require.NoError(t, err)
		require.NotEmpty(t, matches, "subject %d", id)
		assert.Equal(t, id, matches[0].SubjectID)
		assert.InDelta(t, 0, matches[0].Distance, 1e-6)
	}
}

func TestEngine_BuildEmptyKeepsArtifact(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedScenario(t, f)
	require.NoError(t, f.eng.BuildIndex(ctx, modality.Face))

	before, err := os.ReadFile(f.eng.IndexPath(modality.Face))
	require.NoError(t, err)

	for _, id := range []int64{1, 2, 3} {
		require.True(t, f.store.Deactivate(id, modality.Face))
	}
	err = f.eng.BuildIndex(ctx, modality.Face)
	assert.ErrorIs(t, err, ErrEmptyIndex)

	after, err := os.ReadFile(f.eng.IndexPath(modality.Face))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	stats := f.metrics.GetStats()
	assert.Equal(t, int64(2), stats.BuildCount)
	assert.Equal(t, int64(1), stats.BuildErrors)
}

func TestEngine_DeactivatedSubjectDropped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedScenario(t, f)
	require.NoError(t, f.eng.BuildIndex(ctx, modality.Face))

	require.True(t, f.store.Deactivate(3, modality.Face))

	matches, err := f.eng.Match(ctx, Session{}, []float32{1, 0, 0}, modality.Face)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(1), matches[0].SubjectID)

	st, err := f.eng.Staleness(ctx, modality.Face)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, st.Stale)
	assert.Empty(t, st.Missing)
	assert.Equal(t, uint64(3), st.Indexed)
	assert.Equal(t, uint64(2), st.Active)
	assert.False(t, st.Fresh())

	require.NoError(t, f.eng.BuildIndex(ctx, modality.Face))
	st, err = f.eng.Staleness(ctx, modality.Face)
	require.NoError(t, err)
	assert.True(t, st.Fresh())
}

func TestEngine_StalenessWithoutIndex(t *testing.T) {
	f := newFixture(t)
	seedScenario(t, f)

	st, err := f.eng.Staleness(context.Background(), modality.Face)
	require.NoError(t, err)
	assert.True(t, st.BuiltAt.IsZero())
	assert.Equal(t, []int64{1, 2, 3}, st.Missing)
	assert.Empty(t, st.Stale)
}

func TestEngine_Enroll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.AddSubject(1, "alice")
	f.store.AddSubject(2, "bob")

	_, err := f.eng.Enroll(ctx, Session{}, 1, modality.Face, []float32{1, 0, 0})
	require.NoError(t, err)

	// A near-identical embedding for a different subject is refused and
	// leaves no partial state behind.
	_, err = f.eng.Enroll(ctx, Session{}, 2, modality.Face, []float32{0.999, 0.045, 0})
	assert.ErrorIs(t, err, ErrDuplicateBiometric)
	assert.True(t, IsRejected(err))
	assert.Len(t, f.store.Samples(), 1)

	// The same subject may update their own biometric.
	sampleID, err := f.eng.Enroll(ctx, Session{}, 1, modality.Face, []float32{0.999, 0.045, 0})
	require.NoError(t, err)
	assert.Equal(t, int64(2), sampleID)

	samples := f.store.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, store.StatusInactive, samples[0].Status)
	assert.Equal(t, store.StatusActive, samples[1].Status)

	// Far away embeddings of other subjects are accepted.
	_, err = f.eng.Enroll(ctx, Session{}, 2, modality.Face, []float32{0, 1, 0})
	require.NoError(t, err)

	matches, err := f.eng.Match(ctx, Session{}, []float32{0, 1, 0}, modality.Face)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "bob", matches[0].Identity)

	stats := f.metrics.GetStats()
	assert.Equal(t, int64(4), stats.DuplicateChecks)
	assert.Equal(t, int64(1), stats.DuplicatesFound)
}

func TestEngine_EnrollWithoutWriter(t *testing.T) {
	s := store.NewMemory()
	eng := New(s, s)
	_, err := eng.Enroll(context.Background(), Session{}, 1, modality.Face, []float32{1})
	assert.ErrorIs(t, err, ErrNoSampleWriter)
}

func TestEngine_IsDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedScenario(t, f)
	require.NoError(t, f.eng.BuildIndex(ctx, modality.Face))

	dup, err := f.eng.IsDuplicate(ctx, nil, []float32{1, 0, 0}, modality.Face)
	require.NoError(t, err)
	assert.True(t, dup)

	// Subjects 1 and 3 are both within threshold of the query.
	dup, err = f.eng.IsDuplicate(ctx, ID(1), []float32{1, 0, 0}, modality.Face)
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = f.eng.IsDuplicate(ctx, ID(2), []float32{0, 1, 0}, modality.Face)
	require.NoError(t, err)
	assert.False(t, dup)

	dup, err = f.eng.IsDuplicate(ctx, nil, []float32{0, 0, 1}, modality.Face)
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestEngine_CorruptIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedScenario(t, f)
	require.NoError(t, f.eng.BuildIndex(ctx, modality.Face))

	p := f.eng.IndexPath(modality.Face)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(p, data, 0o644))

	_, err = f.eng.Match(ctx, Session{}, []float32{1, 0, 0}, modality.Face)
	assert.ErrorIs(t, err, ErrIndexCorrupt)
	assert.True(t, NeedsRepair(err))
	assert.False(t, IsTransient(err))

	_, err = f.eng.IsDuplicate(ctx, nil, []float32{1, 0, 0}, modality.Face)
	assert.ErrorIs(t, err, ErrIndexCorrupt)

	entries := f.sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.OutcomeError, entries[0].Outcome)
}

func TestEngine_StorageErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedScenario(t, f)
	require.NoError(t, f.eng.BuildIndex(ctx, modality.Face))

	cause := errors.New("connection refused")
	failing := failingStore{err: cause}

	eng := New(failing, failing, WithIndexDir(f.dir), WithDimension(modality.Face, 3))

	err := eng.BuildIndex(ctx, modality.Face)
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "fetch active vectors", se.Op)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsTransient(err))

	_, err = eng.Match(ctx, Session{}, []float32{1, 0, 0}, modality.Face)
	require.ErrorAs(t, err, &se)
	assert.True(t, IsTransient(err))
}

type failingStore struct {
	err error
}

func (s failingStore) FetchActiveVectors(context.Context, modality.Modality) ([]store.Vector, error) {
	return nil, s.err
}

func (s failingStore) ResolveActiveIdentities(context.Context, modality.Modality, *roaring64.Bitmap) (map[int64]string, error) {
	return nil, s.err
}

func TestEngine_AuditFailureDoesNotFailMatch(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}
	broken := audit.SinkFunc(func(context.Context, audit.Entry) error {
		return errors.New("disk full")
	})
	al := audit.NewLogger(broken, audit.WithDropHook(metrics.RecordAuditDrop))
	f := newFixture(t, WithAudit(al))
	seedScenario(t, f)
	require.NoError(t, f.eng.BuildIndex(ctx, modality.Face))

	matches, err := f.eng.Match(ctx, Session{}, []float32{1, 0, 0}, modality.Face)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	assert.Equal(t, int64(1), al.Dropped())
	assert.Equal(t, int64(1), metrics.GetStats().AuditDrops)
}

func TestEngine_CachedLoadPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithLoadPolicy(LoadPolicyCached))
	seedScenario(t, f)
	require.NoError(t, f.eng.BuildIndex(ctx, modality.Face))

	_, err := f.eng.Match(ctx, Session{}, []float32{0, 1, 0}, modality.Face)
	require.NoError(t, err)
	first := f.eng.cache[modality.Face].Load()
	require.NotNil(t, first)

	_, err = f.eng.Match(ctx, Session{}, []float32{0, 1, 0}, modality.Face)
	require.NoError(t, err)
	assert.Same(t, first, f.eng.cache[modality.Face].Load())

	// A rebuild invalidates the cached index.
	f.seed(t, modality.Face, 4, []float32{0, 0, 1})
	require.NoError(t, f.eng.BuildIndex(ctx, modality.Face))
	assert.Nil(t, f.eng.cache[modality.Face].Load())

	matches, err := f.eng.Match(ctx, Session{}, []float32{0, 0, 1}, modality.Face)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(4), matches[0].SubjectID)

	// Removing the artifact behind the engine's back is noticed.
	require.NoError(t, os.Remove(f.eng.IndexPath(modality.Face)))
	matches, err = f.eng.Match(ctx, Session{}, []float32{0, 0, 1}, modality.Face)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEngine_PublishAndRestore(t *testing.T) {
	ctx := context.Background()
	remote := blobstore.NewMemoryStore()
	pub := blobstore.NewPublisher(remote, blobstore.WithPrefix("prod"))

	builder := newFixture(t, WithPublisher(pub))
	seedScenario(t, builder)
	require.NoError(t, builder.eng.BuildIndex(ctx, modality.Face))
	assert.Equal(t, []string{"prod/face/face_ivf.idx.zst"}, remote.Keys(""))

	// A second node with an empty index directory restores the artifact.
	dir := t.TempDir()
	reader := New(builder.store, builder.store,
		WithIndexDir(dir),
		WithDimension(modality.Face, 3),
		WithPublisher(pub),
		WithRestoreFromPublisher(),
	)
	matches, err := reader.Match(ctx, Session{}, []float32{1, 0, 0}, modality.Face)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.FileExists(t, filepath.Join(dir, "face_ivf.idx"))

	// Nothing published for voice: still a missing index.
	matches, err = reader.Match(ctx, Session{}, make([]float32, modality.DimensionVoice), modality.Voice)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEngine_PublishFailureDoesNotFailBuild(t *testing.T) {
	ctx := context.Background()
	pub := blobstore.NewPublisher(brokenBlobs{})
	f := newFixture(t, WithPublisher(pub))
	seedScenario(t, f)

	require.NoError(t, f.eng.BuildIndex(ctx, modality.Face))
	assert.FileExists(t, f.eng.IndexPath(modality.Face))
}

type brokenBlobs struct{}

func (brokenBlobs) Put(context.Context, string, []byte) error { return errors.New("bucket gone") }
func (brokenBlobs) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("bucket gone")
}
func (brokenBlobs) Delete(context.Context, string) error { return nil }

func TestEngine_BuildAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithDimension(modality.Voice, 2))
	seedScenario(t, f)
	f.seed(t, modality.Voice, 1, []float32{1, 0})

	require.NoError(t, f.eng.BuildAll(ctx))

	assert.FileExists(t, f.eng.IndexPath(modality.Face))
	assert.FileExists(t, f.eng.IndexPath(modality.Voice))
	assert.NoFileExists(t, f.eng.IndexPath(modality.Signature))
}

func TestEngine_Thresholds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithThreshold(modality.Face, 0.0005))
	seedScenario(t, f)
	require.NoError(t, f.eng.BuildIndex(ctx, modality.Face))

	assert.Equal(t, float32(0.0005), f.eng.Config(modality.Face).Threshold)
	assert.Equal(t, modality.ThresholdVoice, f.eng.Config(modality.Voice).Threshold)

	matches, err := f.eng.Match(ctx, Session{}, []float32{1, 0, 0}, modality.Face)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(1), matches[0].SubjectID)
}

func TestEngine_ConcurrentMatchDuringRebuild(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedScenario(t, f)
	require.NoError(t, f.eng.BuildIndex(ctx, modality.Face))

	done := make(chan struct{})
	errs := make(chan error, 1)
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			if err := f.eng.BuildIndex(ctx, modality.Face); err != nil {
				errs <- err
				return
			}
		}
	}()

	deadline := time.After(10 * time.Second)
	for {
		select {
		case <-done:
			select {
			case err := <-errs:
				t.Fatal(err)
			default:
			}
			return
		case <-deadline:
			t.Fatal("rebuild did not finish")
		default:
		}
		matches, err := f.eng.Match(ctx, Session{}, []float32{1, 0, 0}, modality.Face)
		require.NoError(t, err)
		require.Len(t, matches, 2)
	}
}

func TestEngine_DeactivatedSubjectDroppedDespiteOtherModality(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedScenario(t, f)
	_, err := f.store.SaveSample(ctx, 3, modality.Voice, make([]float32, modality.DimensionVoice))
	require.NoError(t, err)
	require.NoError(t, f.eng.BuildIndex(ctx, modality.Face))

	require.True(t, f.store.Deactivate(3, modality.Face))

	matches, err := f.eng.Match(ctx, Session{}, []float32{1, 0, 0}, modality.Face)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(1), matches[0].SubjectID)
}

func TestEngine_CachedLoadPolicyNoticesReplacedFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithLoadPolicy(LoadPolicyCached))
	seedScenario(t, f)
	require.NoError(t, f.eng.BuildIndex(ctx, modality.Face))

	p := f.eng.IndexPath(modality.Face)
	first, err := f.eng.loadIndex(ctx, f.eng.Config(modality.Face))
	require.NoError(t, err)
	before, err := os.Stat(p)
	require.NoError(t, err)

	// Another process rebuilds with the same vector count; the file keeps
	// size and mod time but is a new file.
	other := store.NewMemory()
	for i, v := range [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}} {
		id := int64(11 + i)
		other.AddSubject(id, fmt.Sprintf("subject-%d", id))
		_, err := other.SaveSample(ctx, id, modality.Face, v)
		require.NoError(t, err)
	}
	rebuilder := New(other, other,
		WithIndexDir(f.dir),
		WithIVFConfig(f.eng.opts.ivf),
		WithDimension(modality.Face, 3),
	)
	require.NoError(t, rebuilder.BuildIndex(ctx, modality.Face))
	require.NoError(t, os.Chtimes(p, before.ModTime(), before.ModTime()))

	after, err := os.Stat(p)
	require.NoError(t, err)
	require.Equal(t, before.Size(), after.Size())
	require.True(t, before.ModTime().Equal(after.ModTime()))

	second, err := f.eng.loadIndex(ctx, f.eng.Config(modality.Face))
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.True(t, second.Subjects().Contains(11))
}

func TestEngine_RestoreKeepsExistingArtifact(t *testing.T) {
	ctx := context.Background()
	remote := blobstore.NewMemoryStore()
	pub := blobstore.NewPublisher(remote)

	builder := newFixture(t, WithPublisher(pub))
	seedScenario(t, builder)
	require.NoError(t, builder.eng.BuildIndex(ctx, modality.Face))

	// The reader's own rebuild lands before the restore runs.
	reader := newFixture(t, WithPublisher(pub), WithRestoreFromPublisher())
	reader.seed(t, modality.Face, 9, []float32{0, 0, 1})
	local := New(reader.store, reader.store,
		WithIndexDir(reader.dir),
		WithDimension(modality.Face, 3),
	)
	require.NoError(t, local.BuildIndex(ctx, modality.Face))

	p := reader.eng.IndexPath(modality.Face)
	saved, err := os.ReadFile(p)
	require.NoError(t, err)

	idx, err := reader.eng.restore(ctx, reader.eng.Config(modality.Face), p)
	require.NoError(t, err)
	assert.True(t, idx.Subjects().Contains(9))
	assert.False(t, idx.Subjects().Contains(1))

	after, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, saved, after)
}
