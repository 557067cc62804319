package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/karmatracker/internal/debt"
	"github.com/roach88/karmatracker/internal/evaluator"
	"github.com/roach88/karmatracker/internal/ledger"
	"github.com/roach88/karmatracker/internal/lifecycle"
)

// ActionRequest is one submitted action.
type ActionRequest struct {
	UserID string `json:"user_id"`
	Action string `json:"action"`

	// Intensity scales the base reward. Zero means 1.
	Intensity float64 `json:"intensity,omitempty"`

	// AffectedUserID is the user harmed by a negative action. A debt edge
	// toward them is opened.
	AffectedUserID string `json:"affected_user_id,omitempty"`

	Description string `json:"description,omitempty"`
}

// ActionResult is everything one submission changed.
type ActionResult struct {
	Record           ledger.Record          `json:"record"`
	Impact           evaluator.Impact       `json:"impact"`
	Created          bool                   `json:"created"`
	Debt             *debt.Edge             `json:"debt,omitempty"`
	Threshold        lifecycle.Details      `json:"threshold"`
	ThresholdReached bool                   `json:"threshold_reached"`
	Death            *lifecycle.DeathResult `json:"death,omitempty"`
	AuditIndex       *int64                 `json:"audit_index,omitempty"`
}

// SubmitAction evaluates an action for a user, creating the user's ledger on
// first sight. Decay is applied up to now before the evaluation. A negative
// action with an affected user opens a debt edge. When the lifecycle engine
// has AutoDeath set and the action takes a living user to the threshold,
// the death is recorded as well.
//
// On any error the stored record is left as it was.
func (t *Tracker) SubmitAction(ctx context.Context, req ActionRequest) (ActionResult, error) {
	if req.UserID == "" {
		return ActionResult{}, errors.New("user id is empty")
	}

	res, ev, err := t.applyAction(ctx, req)
	if err != nil {
		return ActionResult{}, err
	}
	t.forwardEvent(ctx, ev)

	cfg := t.life.Config()
	if res.ThresholdReached && cfg.AutoDeath && res.Record.Status == ledger.StatusAlive {
		death, err := t.TriggerDeath(ctx, req.UserID)
		if err != nil {
			return res, fmt.Errorf("auto death: %w", err)
		}
		res.Death = &death
		if res.Record, err = t.users.GetUser(ctx, req.UserID); err != nil {
			return res, err
		}
	}
	return res, nil
}

type actionEvent struct {
	Request ActionRequest    `json:"request"`
	Impact  evaluator.Impact `json:"impact"`
	EdgeID  string           `json:"edge_id,omitempty"`
	Score   float64          `json:"score"`
}

func edgeID(e *debt.Edge) string {
	if e == nil {
		return ""
	}
	return e.ID
}

// applyAction stores the evaluated record and any debt edge, then chains
// the event before the user's lock is released.
func (t *Tracker) applyAction(ctx context.Context, req ActionRequest) (ActionResult, *Event, error) {
	unlock := t.locks.Lock(req.UserID)
	defer unlock()

	now := t.clock.Now()
	created := false
	prev, err := t.users.GetUser(ctx, req.UserID)
	switch {
	case errors.Is(err, ledger.ErrUserNotFound):
		prev = ledger.NewRecord(req.UserID, now)
		created = true
	case err != nil:
		return ActionResult{}, nil, err
	}
	if prev.Status == ledger.StatusSuperseded {
		return ActionResult{}, nil, fmt.Errorf("%w: %s", lifecycle.ErrSuperseded, req.UserID)
	}

	decayed := ledger.ApplyDecay(prev, now, t.decay)
	next, impact, err := t.eval.Evaluate(decayed, req.Action, req.Intensity, req.AffectedUserID, now)
	if err != nil {
		return ActionResult{}, nil, err
	}
	if impact.Debt != nil {
		if _, err := t.users.GetUser(ctx, impact.Debt.ReceiverID); err != nil {
			return ActionResult{}, nil, relationshipErr(req.UserID, impact.Debt.ReceiverID, impact.Debt.ReceiverID, err)
		}
	}

	if created {
		err = t.users.InsertUser(ctx, next)
	} else {
		err = t.users.PutUser(ctx, next)
	}
	if err != nil {
		return ActionResult{}, nil, fmt.Errorf("store record: %w", err)
	}

	t.logger.Debug("action evaluated",
		"user_id", req.UserID,
		"action", req.Action,
		"reward", impact.AdjustedReward,
		"score", impact.ScoreAfter,
	)

	res := ActionResult{Record: next, Impact: impact, Created: created}
	if d := impact.Debt; d != nil {
		e, err := t.debts.CreateDebt(ctx, req.UserID, d.ReceiverID, d.Severity, d.Amount, d.ActionType, req.Description)
		if err != nil {
			// Undo the ledger side of the obligation. A first-seen user keeps
			// an empty record.
			if rbErr := t.users.PutUser(ctx, prev); rbErr != nil {
				t.logger.Error("record rollback failed", "user_id", req.UserID, "error", rbErr)
			}
			return ActionResult{}, nil, fmt.Errorf("create debt: %w", err)
		}
		res.Debt = &e
	}

	res.ThresholdReached, res.Threshold = lifecycle.CheckThreshold(res.Record, t.life.Config())
	ev := t.appendEvent(ctx, EventActionEvaluated, req.UserID, actionEvent{
		Request: req,
		Impact:  res.Impact,
		EdgeID:  edgeID(res.Debt),
		Score:   res.Impact.ScoreAfter,
	})
	res.AuditIndex = ev.AuditIndex
	return res, ev, nil
}
