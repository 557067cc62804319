// Package audit hash-chains ledger mutations and snapshots windows of the
// chain under a Merkle root.
//
// Every entry carries the SHA-256 of its canonical payload (entry_hash), the
// entry_hash of its predecessor (previous_hash, 64 zeros at index 0) and an
// audit_hash over the payload plus chain metadata. Any later change to the
// payload or metadata is detected by VerifyEntry; reordering, gaps and
// spliced entries are detected by VerifyChain.
//
// Hashes use RFC 8785 canonical JSON (see package canon), so entries verify
// after a round trip through any JSON store.
package audit
