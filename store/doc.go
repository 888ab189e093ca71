// Package store defines the collaborator interfaces the matcher consumes:
// a source of active embeddings per modality, an identity resolver and an
// optional sample writer used by enrollment.
//
// Memory is an in-process implementation used by tests and examples; the
// sqlite sub-package provides a reference relational implementation.
package store
