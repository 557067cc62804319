package debt

import (
	"context"

	"github.com/roach88/karmatracker/internal/ledger"
)

// EdgeFilter narrows ListEdges. Zero fields match everything.
type EdgeFilter struct {
	// UserID matches edges where the user is debtor or receiver.
	UserID string
	Status Status
}

// Match reports whether e satisfies the filter.
func (f EdgeFilter) Match(e Edge) bool {
	if f.UserID != "" && e.DebtorID != f.UserID && e.ReceiverID != f.UserID {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	return true
}

// EdgeStore persists debt edges.
//
// GetEdge and UpdateEdge return an error wrapping ErrEdgeNotFound for unknown
// ids. TransferEdge writes the frozen source and its successor in one unit:
// either both are stored or neither is. ListEdges returns edges ordered by
// creation time, then id.
type EdgeStore interface {
	InsertEdge(ctx context.Context, e Edge) error
	GetEdge(ctx context.Context, id string) (Edge, error)
	UpdateEdge(ctx context.Context, e Edge) error
	TransferEdge(ctx context.Context, source, successor Edge) error
	ListEdges(ctx context.Context, f EdgeFilter) ([]Edge, error)
}

// UserLookup confirms that both parties of an edge exist.
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (ledger.Record, error)
}
