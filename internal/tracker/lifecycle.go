package tracker

import (
	"context"

	"github.com/roach88/karmatracker/internal/debt"
	"github.com/roach88/karmatracker/internal/evaluator"
	"github.com/roach88/karmatracker/internal/ledger"
	"github.com/roach88/karmatracker/internal/lifecycle"
)

// UpdatePrarabdha adjusts a user's active karma and reports the threshold
// state afterwards.
func (t *Tracker) UpdatePrarabdha(ctx context.Context, userID string, delta float64) (ledger.Record, lifecycle.Details, error) {
	var ev *Event
	r, err := t.life.UpdatePrarabdha(ctx, userID, delta, func(r ledger.Record) {
		ev = t.appendEvent(ctx, EventPrarabdhaAdjusted, userID, prarabdhaEvent{Delta: delta, Prarabdha: r.Prarabdha})
	})
	if err != nil {
		return ledger.Record{}, lifecycle.Details{}, err
	}
	t.forwardEvent(ctx, ev)
	_, d := lifecycle.CheckThreshold(r, t.life.Config())
	return r, d, nil
}

type prarabdhaEvent struct {
	Delta     float64 `json:"delta"`
	Prarabdha float64 `json:"prarabdha"`
}

// CheckDeathThreshold reads the threshold state without changing anything.
func (t *Tracker) CheckDeathThreshold(ctx context.Context, userID string) (bool, lifecycle.Details, error) {
	return t.life.CheckDeathThreshold(ctx, userID)
}

// TriggerDeath records a death.
func (t *Tracker) TriggerDeath(ctx context.Context, userID string) (lifecycle.DeathResult, error) {
	var ev *Event
	res, err := t.life.TriggerDeath(ctx, userID, func(res lifecycle.DeathResult) {
		ev = t.appendEvent(ctx, EventDeathRecorded, userID, res)
	})
	if err != nil {
		return lifecycle.DeathResult{}, err
	}
	t.forwardEvent(ctx, ev)
	return res, nil
}

// Rebirth creates the successor of a user with a recorded death.
func (t *Tracker) Rebirth(ctx context.Context, userID string) (lifecycle.RebirthResult, error) {
	var ev *Event
	res, err := t.life.Rebirth(ctx, userID, func(res lifecycle.RebirthResult) {
		ev = t.appendEvent(ctx, EventRebirth, userID, res)
	})
	if err != nil {
		return res, err
	}
	t.forwardEvent(ctx, ev)
	return res, nil
}

// Status is a read-only view of one user.
type Status struct {
	Record    ledger.Record              `json:"record"`
	Score     float64                    `json:"score"`
	Loka      lifecycle.Loka             `json:"loka"`
	Threshold lifecycle.Details          `json:"threshold"`
	Reached   bool                       `json:"threshold_reached"`
	Debts     debt.Summary               `json:"debts"`
	Guidance  []evaluator.Recommendation `json:"guidance"`
}

// Status gathers a user's record, score, projected loka, threshold state,
// debt position and corrective guidance.
func (t *Tracker) Status(ctx context.Context, userID string) (Status, error) {
	r, err := t.users.GetUser(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	summary, err := t.debts.NetworkSummary(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	cfg := t.life.Config()
	score := ledger.WeightedScore(r, t.weights)
	reached, d := lifecycle.CheckThreshold(r, cfg)
	guidance := t.eval.Guidance(r)
	if guidance == nil {
		guidance = []evaluator.Recommendation{}
	}
	return Status{
		Record:    r,
		Score:     score,
		Loka:      lifecycle.LokaFor(score, cfg.LokaThresholds),
		Threshold: d,
		Reached:   reached,
		Debts:     summary,
		Guidance:  guidance,
	}, nil
}

// Guidance returns the corrective recommendations for a user.
func (t *Tracker) Guidance(ctx context.Context, userID string) ([]evaluator.Recommendation, error) {
	r, err := t.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return t.eval.Guidance(r), nil
}
