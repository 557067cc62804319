package debt

import (
	"slices"
	"time"

	"github.com/roach88/karmatracker/internal/ledger"
)

// Status is the state of a debt edge.
type Status string

const (
	StatusActive      Status = "active"
	StatusRepaid      Status = "repaid"
	StatusTransferred Status = "transferred"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusRepaid, StatusTransferred:
		return true
	}
	return false
}

// Repayment is one entry of an edge's append-only repayment history.
type Repayment struct {
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	Timestamp time.Time `json:"timestamp"`
}

// Edge is a single obligation from DebtorID to ReceiverID.
type Edge struct {
	ID               string          `json:"id"`
	DebtorID         string          `json:"debtor_id"`
	ReceiverID       string          `json:"receiver_id"`
	ActionType       string          `json:"action_type"`
	Severity         ledger.Severity `json:"severity"`
	Amount           float64         `json:"amount"`
	OriginalAmount   float64         `json:"original_amount"`
	Description      string          `json:"description,omitempty"`
	Status           Status          `json:"status"`
	RepaymentHistory []Repayment     `json:"repayment_history"`
	TransferredTo    string          `json:"transferred_to,omitempty"`
	TransferredFrom  string          `json:"transferred_from,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Active reports whether the edge still carries an obligation.
func (e Edge) Active() bool {
	return e.Status == StatusActive
}

// Clone returns a deep copy of e.
func (e Edge) Clone() Edge {
	e.RepaymentHistory = slices.Clone(e.RepaymentHistory)
	return e
}

// Weighted returns the outstanding amount scaled by the severity multiplier.
func (e Edge) Weighted(w ledger.Weights) float64 {
	return e.Amount * w.Multiplier(e.Severity)
}

// Repaid returns the total of the repayment history.
func (e Edge) Repaid() float64 {
	var total float64
	for _, r := range e.RepaymentHistory {
		total += r.Amount
	}
	return total
}
