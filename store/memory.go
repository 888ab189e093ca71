package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/biomatch/modality"
)

var (
	_ VectorStore      = (*Memory)(nil)
	_ IdentityResolver = (*Memory)(nil)
	_ SampleWriter     = (*Memory)(nil)
)

// Memory is a goroutine-safe in-memory store.
type Memory struct {
	mu       sync.RWMutex
	subjects map[int64]string
	samples  []Sample
	nextID   int64
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{subjects: make(map[int64]string)}
}

// AddSubject registers a subject and its display identity.
func (m *Memory) AddSubject(id int64, display string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects[id] = display
}

// SaveSample implements SampleWriter.
func (m *Memory) SaveSample(_ context.Context, subjectID int64, mod modality.Modality, embedding []float32) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subjects[subjectID]; !ok {
		return 0, ErrSubjectNotFound
	}
	for i := range m.samples {
		s := &m.samples[i]
		if s.SubjectID == subjectID && s.Modality == mod && s.Status == StatusActive {
			s.Status = StatusInactive
		}
	}
	m.nextID++
	m.samples = append(m.samples, Sample{
		ID:         m.nextID,
		SubjectID:  subjectID,
		Modality:   mod,
		Embedding:  slices.Clone(embedding),
		Status:     StatusActive,
		RecordedAt: time.Now().UTC(),
	})
	return m.nextID, nil
}

// Deactivate marks the active sample of (subjectID, mod) inactive without a
// replacement. It reports whether a sample was deactivated.
func (m *Memory) Deactivate(subjectID int64, mod modality.Modality) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.samples {
		s := &m.samples[i]
		if s.SubjectID == subjectID && s.Modality == mod && s.Status == StatusActive {
			s.Status = StatusInactive
			return true
		}
	}
	return false
}

// Samples returns a snapshot of every sample ever written, in write order.
func (m *Memory) Samples() []Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.samples)
}

// FetchActiveVectors implements VectorStore.
func (m *Memory) FetchActiveVectors(_ context.Context, mod modality.Modality) ([]Vector, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Vector
	for _, s := range m.samples {
		if s.Modality == mod && s.Status == StatusActive {
			out = append(out, Vector{SubjectID: s.SubjectID, Embedding: slices.Clone(s.Embedding)})
		}
	}
	return out, nil
}

// ResolveActiveIdentities implements IdentityResolver.
func (m *Memory) ResolveActiveIdentities(_ context.Context, mod modality.Modality, ids *roaring64.Bitmap) (map[int64]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := roaring64.New()
	for _, s := range m.samples {
		if s.Status == StatusActive && s.Modality == mod {
			active.Add(uint64(s.SubjectID))
		}
	}

	out := make(map[int64]string)
	it := roaring64.And(ids, active).Iterator()
	for it.HasNext() {
		id := int64(it.Next())
		if name, ok := m.subjects[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}
