package debt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/karmatracker/internal/clock"
	"github.com/roach88/karmatracker/internal/keylock"
	"github.com/roach88/karmatracker/internal/ledger"
)

// Mirror receives every edge after it has been persisted. Implementations
// must not block for long; errors are logged and never fail the operation.
type Mirror interface {
	EdgeChanged(ctx context.Context, e Edge) error
}

// Network manages debt edges over an EdgeStore.
//
// Thread-safety: Network is safe for concurrent use. Repay and Transfer on
// the same edge are serialized.
type Network struct {
	edges   EdgeStore
	users   UserLookup
	weights ledger.Weights
	locks   *keylock.Map
	mirror  Mirror
	logger  *slog.Logger
	clock   clock.Clock
	ids     clock.IDGenerator
}

// Option configures a Network.
type Option func(*Network)

// WithMirror forwards persisted edges to m.
func WithMirror(m Mirror) Option {
	return func(n *Network) { n.mirror = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(n *Network) { n.logger = l }
}

// WithClock sets the time source. Defaults to clock.System.
func WithClock(c clock.Clock) Option {
	return func(n *Network) { n.clock = c }
}

// WithIDGenerator sets the edge id source. Defaults to UUIDv7.
func WithIDGenerator(g clock.IDGenerator) Option {
	return func(n *Network) { n.ids = g }
}

// NewNetwork creates a debt network. Severity multipliers come from w.
func NewNetwork(edges EdgeStore, users UserLookup, w ledger.Weights, opts ...Option) *Network {
	n := &Network{
		edges:   edges,
		users:   users,
		weights: w,
		locks:   keylock.New(),
		logger:  slog.Default(),
		clock:   clock.System{},
		ids:     clock.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Weights returns the severity weighting used by summaries.
func (n *Network) Weights() ledger.Weights {
	return n.weights
}

// CreateDebt records a new active obligation from debtorID to receiverID.
func (n *Network) CreateDebt(ctx context.Context, debtorID, receiverID string, sev ledger.Severity, amount float64, actionType, description string) (Edge, error) {
	if debtorID == receiverID {
		return Edge{}, &RelationshipError{DebtorID: debtorID, ReceiverID: receiverID, Reason: "self-referential"}
	}
	if !(amount > 0) || math.IsInf(amount, 0) {
		return Edge{}, &RelationshipError{DebtorID: debtorID, ReceiverID: receiverID, Reason: fmt.Sprintf("amount %v must be positive", amount)}
	}
	if !sev.Valid() {
		return Edge{}, &RelationshipError{DebtorID: debtorID, ReceiverID: receiverID, Reason: "unknown severity"}
	}
	for _, id := range []string{debtorID, receiverID} {
		if err := n.requireUser(ctx, debtorID, receiverID, id); err != nil {
			return Edge{}, err
		}
	}

	now := n.clock.Now()
	e := Edge{
		ID:               n.ids.Generate(),
		DebtorID:         debtorID,
		ReceiverID:       receiverID,
		ActionType:       actionType,
		Severity:         sev,
		Amount:           amount,
		OriginalAmount:   amount,
		Description:      description,
		Status:           StatusActive,
		RepaymentHistory: []Repayment{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := n.edges.InsertEdge(ctx, e); err != nil {
		return Edge{}, fmt.Errorf("insert edge: %w", err)
	}
	n.logger.Debug("debt created",
		"edge_id", e.ID,
		"debtor_id", debtorID,
		"receiver_id", receiverID,
		"severity", sev.String(),
		"amount", amount,
	)
	n.mirrorEdge(ctx, e)
	return e, nil
}

// Repay reduces an active edge by amount, clamping at zero. The edge becomes
// repaid when nothing is left. The recorded repayment is the amount actually
// applied, so an overpayment records only the outstanding balance.
func (n *Network) Repay(ctx context.Context, edgeID string, amount float64, method string) (Edge, error) {
	if !(amount > 0) || math.IsInf(amount, 0) {
		return Edge{}, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}

	unlock := n.locks.Lock(edgeID)
	defer unlock()

	e, err := n.edges.GetEdge(ctx, edgeID)
	if err != nil {
		return Edge{}, err
	}
	if !e.Active() {
		return Edge{}, fmt.Errorf("%w: %s is %s", ErrEdgeNotActive, edgeID, e.Status)
	}

	now := n.clock.Now()
	applied := math.Min(amount, e.Amount)
	next := e.Clone()
	next.Amount = e.Amount - applied
	next.RepaymentHistory = append(next.RepaymentHistory, Repayment{Amount: applied, Method: method, Timestamp: now})
	if next.Amount <= 0 {
		next.Amount = 0
		next.Status = StatusRepaid
	}
	next.UpdatedAt = now

	if err := n.edges.UpdateEdge(ctx, next); err != nil {
		return Edge{}, fmt.Errorf("update edge: %w", err)
	}
	n.logger.Debug("debt repaid", "edge_id", edgeID, "applied", applied, "remaining", next.Amount)
	n.mirrorEdge(ctx, next)
	return next, nil
}

// Transfer moves the remaining obligation of an active edge to newDebtorID.
// The source is frozen as transferred and a new active edge with the same
// receiver, severity and remaining amount is returned.
func (n *Network) Transfer(ctx context.Context, edgeID, newDebtorID string) (Edge, error) {
	unlock := n.locks.Lock(edgeID)
	defer unlock()

	src, err := n.edges.GetEdge(ctx, edgeID)
	if err != nil {
		return Edge{}, err
	}
	if !src.Active() {
		return Edge{}, fmt.Errorf("%w: %s is %s", ErrEdgeNotActive, edgeID, src.Status)
	}
	if newDebtorID == src.ReceiverID {
		return Edge{}, &RelationshipError{DebtorID: newDebtorID, ReceiverID: src.ReceiverID, Reason: "self-referential"}
	}
	if newDebtorID == src.DebtorID {
		return Edge{}, &RelationshipError{DebtorID: newDebtorID, ReceiverID: src.ReceiverID, Reason: "already the debtor"}
	}
	if err := n.requireUser(ctx, newDebtorID, src.ReceiverID, newDebtorID); err != nil {
		return Edge{}, err
	}

	now := n.clock.Now()
	succ := Edge{
		ID:               n.ids.Generate(),
		DebtorID:         newDebtorID,
		ReceiverID:       src.ReceiverID,
		ActionType:       src.ActionType,
		Severity:         src.Severity,
		Amount:           src.Amount,
		OriginalAmount:   src.Amount,
		Description:      src.Description,
		Status:           StatusActive,
		RepaymentHistory: []Repayment{},
		TransferredFrom:  src.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	frozen := src.Clone()
	frozen.Status = StatusTransferred
	frozen.TransferredTo = succ.ID
	frozen.UpdatedAt = now

	if err := n.edges.TransferEdge(ctx, frozen, succ); err != nil {
		return Edge{}, fmt.Errorf("transfer edge: %w", err)
	}
	n.logger.Debug("debt transferred", "edge_id", edgeID, "successor_id", succ.ID, "new_debtor_id", newDebtorID)
	n.mirrorEdge(ctx, frozen)
	n.mirrorEdge(ctx, succ)
	return succ, nil
}

// Edge returns a stored edge.
func (n *Network) Edge(ctx context.Context, edgeID string) (Edge, error) {
	return n.edges.GetEdge(ctx, edgeID)
}

// Edges lists stored edges matching f.
func (n *Network) Edges(ctx context.Context, f EdgeFilter) ([]Edge, error) {
	return n.edges.ListEdges(ctx, f)
}

// Summary is a user's position in the network. Totals are weighted by the
// severity multiplier and consider active edges only.
type Summary struct {
	UserID          string             `json:"user_id"`
	TotalDebt       float64            `json:"total_debt"`
	TotalCredit     float64            `json:"total_credit"`
	NetPosition     float64            `json:"net_position"`
	ActiveDebts     int                `json:"active_debts"`
	ActiveCredits   int                `json:"active_credits"`
	CreditsByDebtor map[string]float64 `json:"credits_by_debtor"`
	DebtsByReceiver map[string]float64 `json:"debts_by_receiver"`
}

// NetworkSummary aggregates what userID owes and is owed. NetPosition is
// credit minus debt.
func (n *Network) NetworkSummary(ctx context.Context, userID string) (Summary, error) {
	if _, err := n.users.GetUser(ctx, userID); err != nil {
		return Summary{}, err
	}
	edges, err := n.edges.ListEdges(ctx, EdgeFilter{UserID: userID, Status: StatusActive})
	if err != nil {
		return Summary{}, fmt.Errorf("list edges: %w", err)
	}

	s := Summary{
		UserID:          userID,
		CreditsByDebtor: map[string]float64{},
		DebtsByReceiver: map[string]float64{},
	}
	for _, e := range edges {
		w := e.Weighted(n.weights)
		switch userID {
		case e.DebtorID:
			s.TotalDebt += w
			s.ActiveDebts++
			s.DebtsByReceiver[e.ReceiverID] += w
		case e.ReceiverID:
			s.TotalCredit += w
			s.ActiveCredits++
			s.CreditsByDebtor[e.DebtorID] += w
		}
	}
	s.NetPosition = s.TotalCredit - s.TotalDebt
	return s, nil
}

func (n *Network) requireUser(ctx context.Context, debtorID, receiverID, id string) error {
	_, err := n.users.GetUser(ctx, id)
	if errors.Is(err, ledger.ErrUserNotFound) {
		return &RelationshipError{DebtorID: debtorID, ReceiverID: receiverID, Reason: fmt.Sprintf("user %s does not exist", id)}
	}
	return err
}

func (n *Network) mirrorEdge(ctx context.Context, e Edge) {
	if n.mirror == nil {
		return
	}
	if err := n.mirror.EdgeChanged(ctx, e); err != nil {
		n.logger.Warn("debt mirror failed", "edge_id", e.ID, "error", err)
	}
}
