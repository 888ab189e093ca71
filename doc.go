// Package biomatch identifies and verifies people by matching biometric
// embeddings against previously enrolled samples.
//
// An Engine keeps one clustered (IVF) index artifact per modality on disk.
// Embeddings are produced elsewhere by face, voice or signature feature
// extractors; the engine only sees fixed-dimension float vectors.
//
// # Quick Start
//
//	db, _ := sqlite.Open("biomatch.db")
//	eng := biomatch.New(db, db,
//	    biomatch.WithIndexDir("./indexes"),
//	    biomatch.WithSampleWriter(db),
//	)
//
//	// Rebuild after enrollment changed the active sample set.
//	_ = eng.BuildIndex(ctx, modality.Face)
//
//	// Identify.
//	matches, _ := eng.Match(ctx, biomatch.Session{Operator: "gate-3"}, emb, modality.Face)
//	for _, m := range matches {
//	    fmt.Println(m.SubjectID, m.Identity, m.Distance)
//	}
//
// # Errors
//
// Every failure maps to one of three caller reactions:
//
//   - IsRejected: the input is unusable (empty vector, duplicate biometric,
//     wrong dimension). Do not retry.
//   - IsTransient: a storage collaborator failed. Retrying may succeed.
//   - NeedsRepair: the index artifact is corrupt or unusable and an operator
//     must rebuild it.
//
// A missing index is not an error for Match: it returns no matches and the
// attempt is still audited.
//
// # Staleness
//
// Between a sample being deactivated and the next rebuild, its subject stays
// in the index. Match resolves identities against the live store, so such
// subjects are dropped from results. Engine.Staleness reports the gap.
package biomatch
