// Package sqlsink stores audit entries in a SQL table (search_logs).
//
// The table is created on New. The sink only appends; browsing and export
// are left to other tools.
package sqlsink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/biomatch/audit"
)

var _ audit.Sink = (*Sink)(nil)

const schema = `CREATE TABLE IF NOT EXISTS search_logs (
	entry_id         TEXT PRIMARY KEY,
	logged_at        TEXT NOT NULL,
	modality         TEXT NOT NULL,
	operator         TEXT,
	subject_id       INTEGER,
	sensor_id        INTEGER,
	sample_id        INTEGER,
	candidates_found INTEGER NOT NULL,
	latency_ns       INTEGER NOT NULL,
	threshold        REAL NOT NULL,
	outcome          TEXT NOT NULL,
	diagnostics      TEXT
)`

// Sink writes entries to the search_logs table.
type Sink struct {
	db *sql.DB
}

// New creates the search_logs table if needed and returns a Sink.
func New(ctx context.Context, db *sql.DB) (*Sink, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating search_logs table: %w", err)
	}
	return &Sink{db: db}, nil
}

// Write implements audit.Sink.
func (s *Sink) Write(ctx context.Context, e audit.Entry) error {
	var diag sql.NullString
	if len(e.Diagnostics) > 0 {
		b, err := json.Marshal(e.Diagnostics)
		if err != nil {
			return fmt.Errorf("marshalling diagnostics: %w", err)
		}
		diag = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO search_logs(
	entry_id, logged_at, modality, operator, subject_id, sensor_id, sample_id,
	candidates_found, latency_ns, threshold, outcome, diagnostics
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(),
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.Modality.String(),
		nullString(e.Operator),
		nullInt(e.SubjectID),
		nullInt(e.SensorID),
		nullInt(e.SampleID),
		e.CandidatesFound,
		e.Latency.Nanoseconds(),
		float64(e.Threshold),
		string(e.Outcome),
		diag,
	)
	if err != nil {
		return fmt.Errorf("inserting search log: %w", err)
	}
	return nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
