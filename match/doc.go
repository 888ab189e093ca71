// Package match turns raw nearest-neighbor results into decisions.
//
// Decide keeps results strictly below a modality's distance threshold and
// resolves the survivors to display identities. Check is the duplicate
// enrollment guard built on the same filter.
package match
