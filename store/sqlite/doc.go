// Package sqlite is a reference implementation of the store collaborator
// interfaces on SQLite.
//
// Schema:
//
//	subjects(subject_id INTEGER PRIMARY KEY, display_name TEXT, created_at TEXT)
//	samples(sample_id INTEGER PRIMARY KEY, subject_id, modality TEXT,
//	        embedding BLOB, status TEXT, recorded_at TEXT)
//
// A partial unique index keeps at most one active sample per
// (subject_id, modality) and a trigger rejects inactive -> active updates,
// so the sample lifecycle is enforced by the database itself.
package sqlite
