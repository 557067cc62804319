package lifecycle

import (
	"fmt"
	"math"
	"time"

	"github.com/roach88/karmatracker/internal/ledger"
)

// Details explains a threshold check.
type Details struct {
	UserID    string        `json:"user_id"`
	Prarabdha float64       `json:"prarabdha"`
	Threshold float64       `json:"threshold"`
	Remaining float64       `json:"remaining"`
	Status    ledger.Status `json:"status"`
}

// DeathResult is the outcome of one death.
type DeathResult struct {
	UserID     string  `json:"user_id"`
	Loka       Loka    `json:"loka"`
	NetKarma   float64 `json:"net_karma"`
	DeathCount int     `json:"death_count"`
}

// RebirthResult links a superseded record to its successor.
type RebirthResult struct {
	OldUserID         string  `json:"old_user_id"`
	NewUserID         string  `json:"new_user_id"`
	InheritedSanchita float64 `json:"inherited_sanchita"`
	NetKarma          float64 `json:"net_karma"`
	RebirthCount      int     `json:"rebirth_count"`
}

// CheckThreshold reports whether r's Prarabdha is at or below the death
// threshold. Remaining is how far Prarabdha may still fall before it is.
func CheckThreshold(r ledger.Record, cfg Config) (bool, Details) {
	d := Details{
		UserID:    r.UserID,
		Prarabdha: r.Prarabdha,
		Threshold: cfg.DeathThreshold,
		Remaining: r.Prarabdha - cfg.DeathThreshold,
		Status:    r.Status,
	}
	return r.Prarabdha <= cfg.DeathThreshold, d
}

// AdjustPrarabdha adds delta to r's Prarabdha. There is no floor.
func AdjustPrarabdha(r ledger.Record, delta float64, now time.Time) (ledger.Record, error) {
	if r.Status == ledger.StatusSuperseded {
		return r, fmt.Errorf("%w: %s", ErrSuperseded, r.UserID)
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return r, fmt.Errorf("%w: %v", ErrInvalidDelta, delta)
	}
	next := r.Clone()
	next.Prarabdha += delta
	next.UpdatedAt = now
	return next, nil
}

// Death records one death of r. The threshold must be reached. Each call is
// one death: calling it twice counts two.
func Death(r ledger.Record, w ledger.Weights, cfg Config, now time.Time) (ledger.Record, DeathResult, error) {
	if r.Status == ledger.StatusSuperseded {
		return r, DeathResult{}, fmt.Errorf("%w: %s", ErrSuperseded, r.UserID)
	}
	if reached, d := CheckThreshold(r, cfg); !reached {
		return r, DeathResult{}, fmt.Errorf("%w: %s prarabdha %v above %v", ErrThresholdNotReached, r.UserID, d.Prarabdha, d.Threshold)
	}

	net := ledger.WeightedScore(r, w)
	loka := LokaFor(net, cfg.LokaThresholds)

	next := r.Clone()
	next.Status = ledger.StatusDeathPending
	next.DeathCount++
	next.LastDeath = &ledger.Death{Loka: string(loka), NetKarma: net, At: now}
	next.UpdatedAt = now

	return next, DeathResult{
		UserID:     r.UserID,
		Loka:       loka,
		NetKarma:   net,
		DeathCount: next.DeathCount,
	}, nil
}

// Successor builds the next life of a record with a pending death. It returns
// the successor (alive, newID) and the old record marked superseded. The net
// karma recorded at death decides the inherited Sanchita. Outstanding
// Rnanubandhan moves to the successor.
func Successor(old ledger.Record, newID string, cfg Config, now time.Time) (ledger.Record, ledger.Record, RebirthResult, error) {
	switch {
	case old.Status == ledger.StatusSuperseded:
		return ledger.Record{}, old, RebirthResult{}, fmt.Errorf("%w: %s", ErrSuperseded, old.UserID)
	case old.Status != ledger.StatusDeathPending || old.LastDeath == nil:
		return ledger.Record{}, old, RebirthResult{}, fmt.Errorf("%w: %s", ErrDeathNotRecorded, old.UserID)
	}

	net := old.LastDeath.NetKarma
	inherited := Inherit(old.Sanchita, net, cfg)

	succ := ledger.NewRecord(newID, now)
	succ.Sanchita = inherited
	succ.RebirthCount = old.RebirthCount + 1
	succ.DeathCount = old.DeathCount
	succ.PredecessorID = old.UserID
	succ.Rnanubandhan = old.Rnanubandhan

	prev := old.Clone()
	prev.Status = ledger.StatusSuperseded
	prev.SuccessorID = newID
	prev.Rnanubandhan = ledger.DebtLedger{}
	prev.UpdatedAt = now

	return succ, prev, RebirthResult{
		OldUserID:         old.UserID,
		NewUserID:         newID,
		InheritedSanchita: inherited,
		NetKarma:          net,
		RebirthCount:      succ.RebirthCount,
	}, nil
}
