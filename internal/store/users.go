package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/karmatracker/internal/ledger"
)

// GetUser returns the stored record for userID.
func (s *Store) GetUser(ctx context.Context, userID string) (ledger.Record, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `
		SELECT record FROM users WHERE user_id = ?
	`, userID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Record{}, fmt.Errorf("%w: %s", ledger.ErrUserNotFound, userID)
	}
	if err != nil {
		return ledger.Record{}, fmt.Errorf("get user: %w", err)
	}
	var r ledger.Record
	if err := unmarshalDoc(doc, &r); err != nil {
		return ledger.Record{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	return r, nil
}

// PutUser replaces an existing record.
func (s *Store) PutUser(ctx context.Context, r ledger.Record) error {
	if err := putUser(ctx, s.db, r); err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// InsertUser stores a new record.
func (s *Store) InsertUser(ctx context.Context, r ledger.Record) error {
	if err := insertUser(ctx, s.db, r); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// SupersedeUser replaces prev and inserts succ in one transaction.
func (s *Store) SupersedeUser(ctx context.Context, prev, succ ledger.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("supersede user: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := insertUser(ctx, tx, succ); err != nil {
		return fmt.Errorf("supersede user: insert successor: %w", err)
	}
	if err := putUser(ctx, tx, prev); err != nil {
		return fmt.Errorf("supersede user: update predecessor: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("supersede user: commit: %w", err)
	}
	return nil
}

func putUser(ctx context.Context, db execer, r ledger.Record) error {
	doc, err := marshalDoc(r)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE users SET status = ?, record = ?, updated_ns = ?
		WHERE user_id = ?
	`, string(r.Status), doc, r.UpdatedAt.UnixNano(), r.UserID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrUserNotFound, r.UserID)
	}
	return nil
}

func insertUser(ctx context.Context, db execer, r ledger.Record) error {
	doc, err := marshalDoc(r)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO users (user_id, status, record, updated_ns)
		VALUES (?, ?, ?, ?)
	`, r.UserID, string(r.Status), doc, r.UpdatedAt.UnixNano())
	if isConstraint(err) {
		return fmt.Errorf("%w: %s", ledger.ErrUserExists, r.UserID)
	}
	return err
}

// ListUsers returns every stored user id in byte order.
func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM users ORDER BY user_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return ids, nil
}

func isConstraint(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}
