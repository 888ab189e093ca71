package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/biomatch/modality"
	"github.com/hupe1980/biomatch/store"
)

// Compile-time interface checks.
var (
	_ store.VectorStore      = (*Store)(nil)
	_ store.IdentityResolver = (*Store)(nil)
	_ store.SampleWriter     = (*Store)(nil)
)

// maxParams stays well below SQLite's default host parameter limit.
const maxParams = 500

// Store implements the store interfaces backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at dbPath and migrates the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	s, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and migrates the schema.
func New(db *sql.DB) (*Store, error) {
	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrating biometric tables: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS subjects (
	subject_id   INTEGER PRIMARY KEY,
	display_name TEXT NOT NULL,
	created_at   TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS samples (
	sample_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	subject_id  INTEGER NOT NULL REFERENCES subjects(subject_id),
	modality    TEXT NOT NULL CHECK (modality IN ('face', 'voice', 'signature')),
	embedding   BLOB NOT NULL,
	status      TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive')),
	recorded_at TEXT NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS samples_one_active
	ON samples(subject_id, modality) WHERE status = 'active'`,
		`CREATE INDEX IF NOT EXISTS samples_modality_status ON samples(modality, status)`,
		`CREATE TRIGGER IF NOT EXISTS samples_deactivation_terminal
	BEFORE UPDATE OF status ON samples
	WHEN OLD.status = 'inactive' AND NEW.status = 'active'
BEGIN
	SELECT RAISE(ABORT, 'sample deactivation is terminal');
END`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddSubject inserts a subject. If id is 0 a new id is assigned.
func (s *Store) AddSubject(ctx context.Context, id int64, displayName string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	var (
		res sql.Result
		err error
	)
	if id == 0 {
		res, err = s.db.ExecContext(ctx, `INSERT INTO subjects(display_name, created_at) VALUES (?, ?)`, displayName, now)
	} else {
		res, err = s.db.ExecContext(ctx, `INSERT INTO subjects(subject_id, display_name, created_at) VALUES (?, ?, ?)`, id, displayName, now)
	}
	if err != nil {
		return 0, fmt.Errorf("inserting subject: %w", err)
	}
	return res.LastInsertId()
}

// DeleteSubject removes a subject that has no samples. It reports whether a
// row was removed; subjects with sample history are kept.
func (s *Store) DeleteSubject(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM subjects WHERE subject_id = ? AND NOT EXISTS (SELECT 1 FROM samples WHERE subject_id = ?)`,
		id, id)
	if err != nil {
		return false, fmt.Errorf("deleting subject: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveSample implements store.SampleWriter.
func (s *Store) SaveSample(ctx context.Context, subjectID int64, m modality.Modality, embedding []float32) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM subjects WHERE subject_id = ?`, subjectID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrSubjectNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("looking up subject %d: %w", subjectID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE samples SET status = 'inactive' WHERE subject_id = ? AND modality = ? AND status = 'active'`,
		subjectID, m.String()); err != nil {
		return 0, fmt.Errorf("deactivating previous sample: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO samples(subject_id, modality, embedding, status, recorded_at) VALUES (?, ?, ?, 'active', ?)`,
		subjectID, m.String(), EncodeEmbedding(embedding), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("inserting sample: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing sample: %w", err)
	}
	return id, nil
}

// Deactivate marks the active sample of (subjectID, m) inactive without a
// replacement. It reports whether a sample was deactivated.
func (s *Store) Deactivate(ctx context.Context, subjectID int64, m modality.Modality) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE samples SET status = 'inactive' WHERE subject_id = ? AND modality = ? AND status = 'active'`,
		subjectID, m.String())
	if err != nil {
		return false, fmt.Errorf("deactivating sample: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Sample returns a sample by id.
func (s *Store) Sample(ctx context.Context, id int64) (store.Sample, error) {
	var (
		out        store.Sample
		mod, stat  string
		blob       []byte
		recordedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT sample_id, subject_id, modality, embedding, status, recorded_at FROM samples WHERE sample_id = ?`, id).
		Scan(&out.ID, &out.SubjectID, &mod, &blob, &stat, &recordedAt)
	if err != nil {
		return store.Sample{}, fmt.Errorf("reading sample %d: %w", id, err)
	}
	if out.Modality, err = modality.Parse(mod); err != nil {
		return store.Sample{}, err
	}
	if out.Status, err = store.ParseStatus(stat); err != nil {
		return store.Sample{}, err
	}
	if out.Embedding, err = DecodeEmbedding(blob); err != nil {
		return store.Sample{}, err
	}
	if out.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
		return store.Sample{}, err
	}
	return out, nil
}

// FetchActiveVectors implements store.VectorStore.
func (s *Store) FetchActiveVectors(ctx context.Context, m modality.Modality) ([]store.Vector, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject_id, embedding FROM samples WHERE modality = ? AND status = 'active' ORDER BY subject_id`,
		m.String())
	if err != nil {
		return nil, fmt.Errorf("querying active %s vectors: %w", m, err)
	}
	defer rows.Close()

	var out []store.Vector
	for rows.Next() {
		var (
			v    store.Vector
			blob []byte
		)
		if err := rows.Scan(&v.SubjectID, &blob); err != nil {
			return nil, fmt.Errorf("scanning vector row: %w", err)
		}
		if v.Embedding, err = DecodeEmbedding(blob); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ResolveActiveIdentities implements store.IdentityResolver.
func (s *Store) ResolveActiveIdentities(ctx context.Context, m modality.Modality, ids *roaring64.Bitmap) (map[int64]string, error) {
	out := make(map[int64]string)
	if ids == nil || ids.IsEmpty() {
		return out, nil
	}

	all := ids.ToArray()
	for start := 0; start < len(all); start += maxParams {
		chunk := all[start:min(start+maxParams, len(all))]
		if err := s.resolveChunk(ctx, m, chunk, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) resolveChunk(ctx context.Context, m modality.Modality, ids []uint64, out map[int64]string) error {
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, int64(id))
	}
	args = append(args, m.String())
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	q := `SELECT s.subject_id, s.display_name FROM subjects s
WHERE s.subject_id IN (` + placeholders + `)
AND EXISTS (SELECT 1 FROM samples p WHERE p.subject_id = s.subject_id AND p.modality = ? AND p.status = 'active')`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("resolving identities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("scanning identity row: %w", err)
		}
		out[id] = name
	}
	return rows.Err()
}
