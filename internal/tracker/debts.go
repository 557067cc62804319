package tracker

import (
	"context"
	"fmt"

	"github.com/roach88/karmatracker/internal/debt"
	"github.com/roach88/karmatracker/internal/ledger"
)

// The debt network owns edges; the debtor's Rnanubandhan sub-ledger is kept
// in step here so that weighted scores reflect outstanding obligations.

// CreateDebt opens an obligation outside of an action evaluation.
func (t *Tracker) CreateDebt(ctx context.Context, debtorID, receiverID string, sev ledger.Severity, amount float64, actionType, description string) (debt.Edge, error) {
	e, ev, err := t.createDebt(ctx, debtorID, receiverID, sev, amount, actionType, description)
	t.forwardEvent(ctx, ev)
	return e, err
}

func (t *Tracker) createDebt(ctx context.Context, debtorID, receiverID string, sev ledger.Severity, amount float64, actionType, description string) (debt.Edge, *Event, error) {
	unlock := t.locks.Lock(debtorID)
	defer unlock()

	debtor, err := t.users.GetUser(ctx, debtorID)
	if err != nil {
		return debt.Edge{}, nil, relationshipErr(debtorID, receiverID, debtorID, err)
	}
	e, err := t.debts.CreateDebt(ctx, debtorID, receiverID, sev, amount, actionType, description)
	if err != nil {
		return debt.Edge{}, nil, err
	}
	if err := t.adjustDebt(ctx, debtor, sev, amount); err != nil {
		return e, nil, err
	}
	return e, t.appendEvent(ctx, EventDebtCreated, debtorID, e), nil
}

// RepayDebt applies a repayment and lowers the debtor's sub-ledger by the
// amount actually applied.
func (t *Tracker) RepayDebt(ctx context.Context, edgeID string, amount float64, method string) (debt.Edge, error) {
	e, ev, err := t.repayDebt(ctx, edgeID, amount, method)
	t.forwardEvent(ctx, ev)
	return e, err
}

func (t *Tracker) repayDebt(ctx context.Context, edgeID string, amount float64, method string) (debt.Edge, *Event, error) {
	cur, err := t.debts.Edge(ctx, edgeID)
	if err != nil {
		return debt.Edge{}, nil, err
	}
	unlock := t.locks.Lock(cur.DebtorID)
	defer unlock()

	next, err := t.debts.Repay(ctx, edgeID, amount, method)
	if err != nil {
		return debt.Edge{}, nil, err
	}
	applied := cur.Amount - next.Amount
	if n := len(next.RepaymentHistory); n > 0 {
		applied = next.RepaymentHistory[n-1].Amount
	}

	debtor, err := t.users.GetUser(ctx, next.DebtorID)
	if err != nil {
		return next, nil, fmt.Errorf("load debtor: %w", err)
	}
	if err := t.adjustDebt(ctx, debtor, next.Severity, -applied); err != nil {
		return next, nil, err
	}
	return next, t.appendEvent(ctx, EventDebtRepaid, next.DebtorID, repayEvent{Edge: next, Applied: applied}), nil
}

type repayEvent struct {
	Edge    debt.Edge `json:"edge"`
	Applied float64   `json:"applied"`
}

// TransferDebt moves an edge to a new debtor and moves the outstanding
// amount between the two sub-ledgers.
func (t *Tracker) TransferDebt(ctx context.Context, edgeID, newDebtorID string) (debt.Edge, error) {
	e, ev, err := t.transferDebt(ctx, edgeID, newDebtorID)
	t.forwardEvent(ctx, ev)
	return e, err
}

func (t *Tracker) transferDebt(ctx context.Context, edgeID, newDebtorID string) (debt.Edge, *Event, error) {
	cur, err := t.debts.Edge(ctx, edgeID)
	if err != nil {
		return debt.Edge{}, nil, err
	}
	unlock := t.locks.LockAll(cur.DebtorID, newDebtorID)
	defer unlock()

	succ, err := t.debts.Transfer(ctx, edgeID, newDebtorID)
	if err != nil {
		return debt.Edge{}, nil, err
	}

	from, err := t.users.GetUser(ctx, cur.DebtorID)
	if err != nil {
		return succ, nil, fmt.Errorf("load debtor: %w", err)
	}
	to, err := t.users.GetUser(ctx, newDebtorID)
	if err != nil {
		return succ, nil, fmt.Errorf("load new debtor: %w", err)
	}
	if err := t.adjustDebt(ctx, from, succ.Severity, -succ.Amount); err != nil {
		return succ, nil, err
	}
	if err := t.adjustDebt(ctx, to, succ.Severity, succ.Amount); err != nil {
		return succ, nil, err
	}
	return succ, t.appendEvent(ctx, EventDebtTransferred, cur.DebtorID, transferEvent{From: edgeID, Edge: succ}), nil
}

type transferEvent struct {
	From string    `json:"from_edge_id"`
	Edge debt.Edge `json:"edge"`
}

func (t *Tracker) adjustDebt(ctx context.Context, r ledger.Record, sev ledger.Severity, delta float64) error {
	next := r.Clone()
	next.Rnanubandhan = next.Rnanubandhan.Add(sev, delta)
	next.UpdatedAt = t.clock.Now()
	if err := t.users.PutUser(ctx, next); err != nil {
		return fmt.Errorf("store record %s: %w", r.UserID, err)
	}
	return nil
}
