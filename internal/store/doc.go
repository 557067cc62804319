// Package store provides SQLite-backed and in-memory storage for the karma
// tracker.
//
// Both implementations satisfy the same collaborator interfaces:
//   - ledger.Store: user records
//   - debt.EdgeStore: Rnanubandhan edges
//   - audit.Sink and audit.SnapshotSink: the hash-chained audit log
//
// # Storage rules
//
// Records, edges, entries and snapshots are stored as JSON documents next to
// the few columns that are queried. Audit entries are append-only: the table
// has no UPDATE path and ledger_index is assigned by the store as the current
// length.
//
// Edge listings are ordered by created_ns ASC, id ASC COLLATE BINARY so the
// same database always yields the same order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
