package evaluator

import (
	"fmt"
	"maps"
	"math"
	"time"

	"github.com/roach88/karmatracker/internal/ledger"
)

// Config configures an Evaluator.
type Config struct {
	// Actions overrides or extends DefaultActions by name.
	Actions map[string]ActionConfig `yaml:"actions" json:"actions"`

	// DebtPenaltyFraction is the share of a penalty that becomes debt to the
	// affected user.
	DebtPenaltyFraction float64 `yaml:"debt_penalty_fraction" json:"debt_penalty_fraction"`

	Learning LearningConfig `yaml:"learning" json:"learning"`
	Cheat    CheatConfig    `yaml:"cheat" json:"cheat"`
	Guidance GuidanceConfig `yaml:"guidance" json:"guidance"`
}

// DefaultConfig returns the standard evaluator configuration.
func DefaultConfig() Config {
	return Config{
		DebtPenaltyFraction: 0.3,
		Learning:            DefaultLearningConfig(),
		Cheat:               DefaultCheatConfig(),
		Guidance:            DefaultGuidanceConfig(),
	}
}

// DebtRequest is the obligation a negative action creates toward the affected
// user. The debt network turns it into an edge.
type DebtRequest struct {
	ReceiverID string          `json:"receiver_id"`
	Severity   ledger.Severity `json:"severity"`
	Amount     float64         `json:"amount"`
	ActionType string          `json:"action_type"`
}

// Impact describes what one evaluation did to a record.
type Impact struct {
	Action         string       `json:"action"`
	Intensity      float64      `json:"intensity"`
	Token          string       `json:"token"`
	Positive       bool         `json:"positive"`
	BaseReward     float64      `json:"base_reward"`
	AdjustedReward float64      `json:"adjusted_reward"`
	CheatCount     int          `json:"cheat_count,omitempty"`
	ScoreBefore    float64      `json:"score_before"`
	ScoreAfter     float64      `json:"score_after"`
	Debt           *DebtRequest `json:"debt,omitempty"`
}

// Evaluator applies actions to ledger records.
type Evaluator struct {
	cfg     Config
	actions map[string]Action
	weights ledger.Weights
	roles   ledger.RoleThresholds
	learner *QLearner
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLearner replaces the learner, e.g. to share one across evaluators or
// to inspect it in tests. A nil learner disables adaptive rewards.
func WithLearner(l *QLearner) Option {
	return func(e *Evaluator) {
		e.learner = l
	}
}

// New creates an Evaluator. The action table is DefaultActions with
// cfg.Actions layered on top.
func New(cfg Config, weights ledger.Weights, roles ledger.RoleThresholds, opts ...Option) (*Evaluator, error) {
	rows := DefaultActions()
	maps.Copy(rows, cfg.Actions)
	actions, err := CompileActions(rows)
	if err != nil {
		return nil, fmt.Errorf("compile action table: %w", err)
	}
	if len(cfg.Cheat.Penalties) == 0 {
		cfg.Cheat.Penalties = DefaultCheatConfig().Penalties
	}

	e := &Evaluator{
		cfg:     cfg,
		actions: actions,
		weights: weights,
		roles:   roles,
	}
	if cfg.Learning.Enabled {
		e.learner = NewQLearner(cfg.Learning)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Action looks up an action table row.
func (e *Evaluator) Action(name string) (Action, bool) {
	a, ok := e.actions[name]
	return a, ok
}

// Learner returns the evaluator's learner, nil when disabled.
func (e *Evaluator) Learner() *QLearner {
	return e.learner
}

// Evaluate applies action at intensity to r.
//
// Intensity 0 means 1.0. Positive actions raise their token and Dridha,
// Sanchita and Prarabdha; negative actions raise their Paap tier and move
// Adridha and Prarabdha down. A negative action with affectedUserID also
// raises the Rnanubandhan sub-ledger and returns a DebtRequest. On error the
// input record is returned unchanged.
func (e *Evaluator) Evaluate(r ledger.Record, action string, intensity float64, affectedUserID string, now time.Time) (ledger.Record, Impact, error) {
	a, ok := e.actions[action]
	if !ok {
		return r, Impact{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if intensity == 0 {
		intensity = 1
	}
	if intensity < 0 || math.IsNaN(intensity) || math.IsInf(intensity, 0) {
		return r, Impact{}, fmt.Errorf("%w: %v", ErrInvalidIntensity, intensity)
	}
	if !a.Positive() && affectedUserID != "" && affectedUserID == r.UserID {
		return r, Impact{}, ErrSelfAffected
	}

	next := r.Clone()
	impact := Impact{
		Action:      action,
		Intensity:   intensity,
		Token:       a.Token.String(),
		Positive:    a.Positive(),
		ScoreBefore: ledger.WeightedScore(r, e.weights),
	}

	base := a.Base
	if action == CheatAction {
		base, impact.CheatCount, next = e.cfg.Cheat.penalty(next, now)
	}
	base *= intensity
	impact.BaseReward = base

	adjusted := base
	if e.learner != nil {
		adjusted = e.AdaptiveReward(next, action, base)
	}
	impact.AdjustedReward = adjusted

	next, debt, err := e.apply(next, a, adjusted, affectedUserID)
	if err != nil {
		return r, Impact{}, err
	}
	impact.Debt = debt

	impact.ScoreAfter = ledger.WeightedScore(next, e.weights)
	next = ledger.Promote(next, impact.ScoreAfter, e.roles)
	next.UpdatedAt = now
	return next, impact, nil
}

// AdaptiveReward blends baseReward with the learned value for the record's
// (role, action). The learner is updated with the weighted-score delta the
// base reward produces, so repeated behavior in a role progressively
// amplifies or dampens future rewards. The result keeps the sign of
// baseReward.
func (e *Evaluator) AdaptiveReward(r ledger.Record, action string, baseReward float64) float64 {
	if e.learner == nil {
		return baseReward
	}
	a, ok := e.actions[action]
	if !ok {
		return baseReward
	}

	projected, _, err := e.apply(r.Clone(), a, baseReward, "")
	if err != nil {
		return baseReward
	}
	reward := ledger.WeightedScore(projected, e.weights) - ledger.WeightedScore(r, e.weights)

	q := e.learner.Update(r.UserID, r.Role, action, reward)
	blend := e.cfg.Learning.Blend
	adjusted := (1-blend)*baseReward + blend*q

	if baseReward > 0 && adjusted < 0 || baseReward < 0 && adjusted > 0 {
		return 0
	}
	return adjusted
}

// apply moves amount onto r for action a. amount is signed.
func (e *Evaluator) apply(r ledger.Record, a Action, amount float64, affectedUserID string) (ledger.Record, *DebtRequest, error) {
	if a.Positive() {
		if amount < 0 {
			amount = 0
		}
		next, ok := ledger.ApplyToken(r, a.Token, amount)
		if !ok {
			return r, nil, fmt.Errorf("apply %s %+v: rejected", a.Token, amount)
		}
		next.Dridha += amount
		next.Sanchita += amount
		next.Prarabdha += amount
		return next, nil, nil
	}

	if amount > 0 {
		amount = 0
	}
	magnitude := -amount
	next, ok := ledger.ApplyToken(r, a.Token, magnitude)
	if !ok {
		return r, nil, fmt.Errorf("apply %s %+v: rejected", a.Token, magnitude)
	}
	next.Adridha += magnitude
	next.Prarabdha += amount

	if affectedUserID == "" || magnitude == 0 {
		return next, nil, nil
	}
	sev := a.Token.Tier.Severity()
	debt := &DebtRequest{
		ReceiverID: affectedUserID,
		Severity:   sev,
		Amount:     e.cfg.DebtPenaltyFraction * magnitude,
		ActionType: a.Name,
	}
	next.Rnanubandhan = next.Rnanubandhan.Add(sev, debt.Amount)
	return next, debt, nil
}

// Guidance returns the corrective recommendations for r.
func (e *Evaluator) Guidance(r ledger.Record) []Recommendation {
	return CorrectiveGuidance(r, e.cfg.Guidance)
}
