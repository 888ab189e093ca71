package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/biomatch/modality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestLogger_FillsIDAndTimestamp(t *testing.T) {
	sink := &MemorySink{}
	l := NewLogger(sink)

	l.Record(context.Background(), Entry{Modality: modality.Face, Outcome: OutcomeNoMatch})

	entries := sink.Entries()
	require.Len(t, entries, 1)
	assert.NotEqual(t, uuid.Nil, entries[0].ID)
	assert.False(t, entries[0].Timestamp.IsZero())
	assert.Equal(t, int64(1), l.Recorded())
	assert.Equal(t, int64(0), l.Dropped())
}

func TestLogger_SwallowsSinkErrors(t *testing.T) {
	var logBuf bytes.Buffer
	var hooked []error
	failing := SinkFunc(func(context.Context, Entry) error { return errors.New("disk full") })

	l := NewLogger(failing,
		WithSlog(slog.New(slog.NewTextHandler(&logBuf, nil))),
		WithWarnRate(rate.Every(time.Hour), 1),
		WithDropHook(func(err error) { hooked = append(hooked, err) }),
	)

	assert.NotPanics(t, func() {
		for i := 0; i < 3; i++ {
			l.Record(context.Background(), Entry{Modality: modality.Voice})
		}
	})

	assert.Equal(t, int64(3), l.Dropped())
	assert.Equal(t, int64(0), l.Recorded())
	assert.Len(t, hooked, 3)
	// Only the first warning passes the limiter.
	assert.Equal(t, 1, bytes.Count(logBuf.Bytes(), []byte("audit entry dropped")))
}

func TestLogger_SwallowsSinkPanics(t *testing.T) {
	panicking := SinkFunc(func(context.Context, Entry) error { panic("boom") })
	l := NewLogger(panicking, WithSlog(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))

	assert.NotPanics(t, func() {
		l.Record(context.Background(), Entry{Modality: modality.Signature})
	})
	assert.Equal(t, int64(1), l.Dropped())
}

func TestLogger_NilIsNoop(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Record(context.Background(), Entry{}) })
	assert.Zero(t, l.Dropped())

	NewLogger(nil).Record(context.Background(), Entry{})
}

func TestMulti(t *testing.T) {
	a, b := &MemorySink{}, &MemorySink{}
	bad := SinkFunc(func(context.Context, Entry) error { return errors.New("nope") })

	err := Multi(a, bad, nil, b).Write(context.Background(), Entry{Outcome: OutcomeMatched})
	assert.Error(t, err)
	assert.Len(t, a.Entries(), 1)
	assert.Len(t, b.Entries(), 1)

	assert.NoError(t, Multi(a).Write(context.Background(), Entry{}))
}

func TestSlogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := SlogSink{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	subject := int64(42)

	require.NoError(t, sink.Write(context.Background(), Entry{
		Modality:        modality.Face,
		SubjectID:       &subject,
		CandidatesFound: 2,
		Outcome:         OutcomeMatched,
		Diagnostics:     map[string]any{"accepted": 1},
	}))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "biometric search", rec["msg"])
	assert.Equal(t, "face", rec["modality"])
	assert.EqualValues(t, 42, rec["subject_id"])
	assert.EqualValues(t, 2, rec["candidates_found"])
}

func TestEntryJSON(t *testing.T) {
	b, err := json.Marshal(Entry{Modality: modality.Voice, Outcome: OutcomeIndexMissing})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "voice", got["modality"])
	assert.Equal(t, "index_missing", got["outcome"])
	assert.EqualValues(t, 0, got["candidates_found"])
	assert.NotContains(t, got, "subject_id")
}
