package sqlsink

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/biomatch/audit"
	"github.com/hupe1980/biomatch/modality"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_Write(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sink, err := New(ctx, db)
	require.NoError(t, err)

	subject := int64(7)
	e := audit.Entry{
		ID:              uuid.New(),
		Timestamp:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Modality:        modality.Signature,
		SubjectID:       &subject,
		CandidatesFound: 3,
		Latency:         1500 * time.Microsecond,
		Threshold:       0.1,
		Outcome:         audit.OutcomeMatched,
		Diagnostics:     map[string]any{"accepted": 1},
	}
	require.NoError(t, sink.Write(ctx, e))

	var (
		mod, outcome, diag string
		subjectID          sql.NullInt64
		sensorID           sql.NullInt64
		candidates         int
		latency            int64
	)
	err = db.QueryRowContext(ctx,
		`SELECT modality, outcome, diagnostics, subject_id, sensor_id, candidates_found, latency_ns FROM search_logs WHERE entry_id = ?`,
		e.ID.String()).Scan(&mod, &outcome, &diag, &subjectID, &sensorID, &candidates, &latency)
	require.NoError(t, err)

	assert.Equal(t, "signature", mod)
	assert.Equal(t, "matched", outcome)
	assert.JSONEq(t, `{"accepted":1}`, diag)
	assert.Equal(t, sql.NullInt64{Int64: 7, Valid: true}, subjectID)
	assert.False(t, sensorID.Valid)
	assert.Equal(t, 3, candidates)
	assert.Equal(t, int64(1500000), latency)

	// Entry ids are unique; a replayed entry is rejected.
	assert.Error(t, sink.Write(ctx, e))
}
