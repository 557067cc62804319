// Package ledger defines the per-user karmic ledger record and the pure
// functions over it: token mutation, the canonical weighted score, time decay
// and role progression.
//
// Key invariants:
//   - Every simple and tiered token balance is >= 0
//   - Dridha and Sanchita are never negative and never decay
//   - Prarabdha has no floor; its depletion drives the lifecycle engine
//   - WeightedScore is the single net karmic weight used downstream
//
// Every function here is pure: it takes a Record by value and returns the
// new Record, so a failed operation can never leave a partial update behind.
package ledger
