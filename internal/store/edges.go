package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/karmatracker/internal/debt"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertEdge stores a new debt edge.
func (s *Store) InsertEdge(ctx context.Context, e debt.Edge) error {
	if err := insertEdge(ctx, s.db, e); err != nil {
		return fmt.Errorf("insert edge: %w", err)
	}
	return nil
}

func insertEdge(ctx context.Context, db execer, e debt.Edge) error {
	doc, err := marshalDoc(e)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO debt_edges (id, debtor_id, receiver_id, status, created_ns, edge)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.DebtorID, e.ReceiverID, string(e.Status), e.CreatedAt.UnixNano(), doc)
	return err
}

func updateEdge(ctx context.Context, db execer, e debt.Edge) error {
	doc, err := marshalDoc(e)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE debt_edges SET status = ?, edge = ? WHERE id = ?
	`, string(e.Status), doc, e.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", debt.ErrEdgeNotFound, e.ID)
	}
	return nil
}

// GetEdge returns the stored edge.
func (s *Store) GetEdge(ctx context.Context, id string) (debt.Edge, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT edge FROM debt_edges WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return debt.Edge{}, fmt.Errorf("%w: %s", debt.ErrEdgeNotFound, id)
	}
	if err != nil {
		return debt.Edge{}, fmt.Errorf("get edge: %w", err)
	}
	var e debt.Edge
	if err := unmarshalDoc(doc, &e); err != nil {
		return debt.Edge{}, fmt.Errorf("get edge %s: %w", id, err)
	}
	return e, nil
}

// UpdateEdge replaces an existing edge.
func (s *Store) UpdateEdge(ctx context.Context, e debt.Edge) error {
	if err := updateEdge(ctx, s.db, e); err != nil {
		return fmt.Errorf("update edge: %w", err)
	}
	return nil
}

// TransferEdge freezes source and inserts successor in one transaction.
func (s *Store) TransferEdge(ctx context.Context, source, successor debt.Edge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("transfer edge: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := updateEdge(ctx, tx, source); err != nil {
		return fmt.Errorf("transfer edge: update source: %w", err)
	}
	if err := insertEdge(ctx, tx, successor); err != nil {
		return fmt.Errorf("transfer edge: insert successor: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transfer edge: commit: %w", err)
	}
	return nil
}

// ListEdges returns edges matching f ordered by creation time, then id.
func (s *Store) ListEdges(ctx context.Context, f debt.EdgeFilter) ([]debt.Edge, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		where = append(where, "(debtor_id = ? OR receiver_id = ?)")
		args = append(args, f.UserID, f.UserID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	query := "SELECT edge FROM debt_edges"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_ns ASC, id COLLATE BINARY ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()

	edges := []debt.Edge{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		var e debt.Edge
		if err := unmarshalDoc(doc, &e); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return edges, nil
}
