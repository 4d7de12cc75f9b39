// Package ratings owns the rating ledger and the aggregate fields derived
// from it.
//
// The ledger (Ledger) is the source of truth: one rating per (user, recipe),
// enforced by the storage layer's unique constraint at insert time. Every
// committed ledger mutation is followed by an explicit call to the
// Aggregator, which re-derives averageRating and ratingCount from the full
// set of live ratings and writes both in one statement. Recomputation is
// O(ratingCount) per write; it converges because storage serializes
// recomputes per recipe and reads the ledger only after taking that lock.
//
// A recompute that fails after its ledger mutation committed is never rolled
// back into the ledger. The recipe id is handed to the Reconciler, which
// retries with backoff and periodically sweeps for drifted aggregates.
package ratings
