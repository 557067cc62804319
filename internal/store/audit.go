package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/karmatracker/internal/audit"
)

// Append stores e at the next ledger index and returns that index. e must
// already carry that index.
func (s *Store) Append(ctx context.Context, e audit.Entry) (int64, error) {
	doc, err := marshalDoc(e)
	if err != nil {
		return 0, fmt.Errorf("append entry: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append entry: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries`).Scan(&next); err != nil {
		return 0, fmt.Errorf("append entry: count: %w", err)
	}
	if e.LedgerIndex != next {
		return 0, fmt.Errorf("append entry: entry index %d, next index %d", e.LedgerIndex, next)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_entries (ledger_index, previous_hash, entry_hash, audit_hash, entry)
		VALUES (?, ?, ?, ?, ?)
	`, next, e.PreviousHash, e.EntryHash, e.AuditHash, doc)
	if err != nil {
		return 0, fmt.Errorf("append entry: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("append entry: commit: %w", err)
	}
	return next, nil
}

// Get returns the entry at index.
func (s *Store) Get(ctx context.Context, index int64) (audit.Entry, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `
		SELECT entry FROM audit_entries WHERE ledger_index = ?
	`, index).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return audit.Entry{}, fmt.Errorf("%w: %d", audit.ErrEntryNotFound, index)
	}
	if err != nil {
		return audit.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	var e audit.Entry
	if err := unmarshalDoc(doc, &e); err != nil {
		return audit.Entry{}, fmt.Errorf("get entry %d: %w", index, err)
	}
	return e, nil
}

// Len returns the number of stored entries.
func (s *Store) Len(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// PutSnapshot stores a sealed snapshot. A snapshot for the same from_index
// is rejected.
func (s *Store) PutSnapshot(ctx context.Context, snap audit.Snapshot) error {
	doc, err := marshalDoc(snap)
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_snapshots (from_index, to_index, merkle_root, snapshot_hash, snapshot)
		VALUES (?, ?, ?, ?, ?)
	`, snap.FromIndex, snap.ToIndex, snap.MerkleRoot, snap.SnapshotHash, doc)
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns stored snapshots ordered by from_index.
func (s *Store) ListSnapshots(ctx context.Context) ([]audit.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT snapshot FROM audit_snapshots ORDER BY from_index ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []audit.Snapshot{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var snap audit.Snapshot
		if err := unmarshalDoc(doc, &snap); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}
