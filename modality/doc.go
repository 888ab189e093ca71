// Package modality defines the biometric channels supported by the matcher
// and the fixed per-channel configuration (embedding dimension, decision
// threshold, storage key and index artifact name).
//
// The set of modalities is closed. Each one resolves to its Config through a
// switch, so a modality can never silently fall back to another channel's
// dimension or threshold.
package modality
