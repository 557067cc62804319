package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/karmatracker/internal/clock"
	"github.com/roach88/karmatracker/internal/debt"
	"github.com/roach88/karmatracker/internal/keylock"
	"github.com/roach88/karmatracker/internal/ledger"
)

// DebtMover moves a user's outstanding obligations to another user.
// Satisfied by *debt.Network.
type DebtMover interface {
	TransferAll(ctx context.Context, fromID, toID string) ([]debt.Edge, error)
}

// Engine applies lifecycle transitions to stored records, serialized per
// user.
//
// Thread-safety: Engine is safe for concurrent use.
type Engine struct {
	store   ledger.Store
	cfg     Config
	weights ledger.Weights
	locks   *keylock.Map
	debts   DebtMover
	clock   clock.Clock
	ids     clock.IDGenerator
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocks shares a per-user lock map with other writers of the same store.
func WithLocks(m *keylock.Map) Option {
	return func(e *Engine) { e.locks = m }
}

// WithDebtMover transfers the old user's active debts to the successor on
// rebirth.
func WithDebtMover(m DebtMover) Option {
	return func(e *Engine) { e.debts = m }
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator sets the successor id source. Defaults to UUIDv7.
func WithIDGenerator(g clock.IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a lifecycle engine. cfg is validated.
func NewEngine(store ledger.Store, cfg Config, w ledger.Weights, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("lifecycle config: %w", err)
	}
	e := &Engine{
		store:   store,
		cfg:     cfg,
		weights: w,
		clock:   clock.System{},
		ids:     clock.UUIDv7Generator{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.locks == nil {
		e.locks = keylock.New()
	}
	return e, nil
}

// Config returns the engine's constants.
func (e *Engine) Config() Config {
	return e.cfg
}

// UpdatePrarabdha adds delta to the user's Prarabdha and stores the result.
// Each committed func runs after the write with the user lock still held.
func (e *Engine) UpdatePrarabdha(ctx context.Context, userID string, delta float64, committed ...func(ledger.Record)) (ledger.Record, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	r, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return ledger.Record{}, err
	}
	next, err := AdjustPrarabdha(r, delta, e.clock.Now())
	if err != nil {
		return r, err
	}
	if err := e.store.PutUser(ctx, next); err != nil {
		return r, fmt.Errorf("store record: %w", err)
	}
	e.logger.Debug("prarabdha updated", "user_id", userID, "delta", delta, "prarabdha", next.Prarabdha)
	for _, fn := range committed {
		fn(next)
	}
	return next, nil
}

// CheckDeathThreshold is a pure read of the user's threshold state.
func (e *Engine) CheckDeathThreshold(ctx context.Context, userID string) (bool, Details, error) {
	r, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return false, Details{}, err
	}
	reached, d := CheckThreshold(r, e.cfg)
	return reached, d, nil
}

// TriggerDeath records a death for a user whose threshold is reached.
// Each committed func runs after the write with the user lock still held.
func (e *Engine) TriggerDeath(ctx context.Context, userID string, committed ...func(DeathResult)) (DeathResult, error) {
	unlock := e.locks.Lock(userID)
	defer unlock()

	r, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return DeathResult{}, err
	}
	next, res, err := Death(r, e.weights, e.cfg, e.clock.Now())
	if err != nil {
		return DeathResult{}, err
	}
	if err := e.store.PutUser(ctx, next); err != nil {
		return DeathResult{}, fmt.Errorf("store record: %w", err)
	}
	e.logger.Info("death recorded", "user_id", userID, "loka", string(res.Loka), "net_karma", res.NetKarma)
	for _, fn := range committed {
		fn(res)
	}
	return res, nil
}

// Rebirth creates the successor of a user with a recorded death. The old
// record is kept, marked superseded. Active debts owed by the old user are
// transferred to the successor when a DebtMover is configured. A rebirth
// whose debt carry failed is finished by calling Rebirth again. Each
// committed func runs once the rebirth is complete, with the old user's lock
// still held.
func (e *Engine) Rebirth(ctx context.Context, oldUserID string, committed ...func(RebirthResult)) (RebirthResult, error) {
	unlock := e.locks.Lock(oldUserID)
	defer unlock()

	old, err := e.store.GetUser(ctx, oldUserID)
	if err != nil {
		return RebirthResult{}, err
	}
	if old.Status == ledger.StatusSuperseded && old.SuccessorID != "" {
		res, err := e.resumeCarry(ctx, old)
		if err != nil {
			return res, err
		}
		for _, fn := range committed {
			fn(res)
		}
		return res, nil
	}
	succ, prev, res, err := Successor(old, e.ids.Generate(), e.cfg, e.clock.Now())
	if err != nil {
		return RebirthResult{}, err
	}
	if err := e.store.SupersedeUser(ctx, prev, succ); err != nil {
		return RebirthResult{}, fmt.Errorf("rebirth %s: %w", oldUserID, err)
	}
	if _, err := e.carryDebts(ctx, oldUserID, succ.UserID); err != nil {
		return res, err
	}
	e.logger.Info("rebirth", "user_id", oldUserID, "successor_id", succ.UserID, "inherited_sanchita", res.InheritedSanchita)
	for _, fn := range committed {
		fn(res)
	}
	return res, nil
}

// resumeCarry finishes a rebirth whose debt carry stopped partway. With
// nothing left to carry the record is simply superseded.
func (e *Engine) resumeCarry(ctx context.Context, old ledger.Record) (RebirthResult, error) {
	superseded := fmt.Errorf("%w: %s", ErrSuperseded, old.UserID)
	if e.debts == nil {
		return RebirthResult{}, superseded
	}
	moved, err := e.carryDebts(ctx, old.UserID, old.SuccessorID)
	if err != nil {
		return RebirthResult{}, err
	}
	if moved == 0 {
		return RebirthResult{}, superseded
	}
	succ, err := e.store.GetUser(ctx, old.SuccessorID)
	if err != nil {
		return RebirthResult{}, fmt.Errorf("successor of %s: %w", old.UserID, err)
	}
	res := RebirthResult{
		OldUserID:         old.UserID,
		NewUserID:         succ.UserID,
		InheritedSanchita: succ.Sanchita,
		RebirthCount:      succ.RebirthCount,
	}
	if old.LastDeath != nil {
		res.NetKarma = old.LastDeath.NetKarma
	}
	e.logger.Info("rebirth resumed", "user_id", old.UserID, "successor_id", succ.UserID, "edges", moved)
	return res, nil
}

// carryDebts moves active debts from one life to the next. Each edge moves
// atomically, so a failed carry can be rerun.
func (e *Engine) carryDebts(ctx context.Context, fromID, toID string) (int, error) {
	if e.debts == nil {
		return 0, nil
	}
	moved, err := e.debts.TransferAll(ctx, fromID, toID)
	if err != nil {
		return len(moved), fmt.Errorf("carry debts to %s: %w", toID, err)
	}
	if len(moved) > 0 {
		e.logger.Debug("debts carried", "user_id", fromID, "successor_id", toID, "edges", len(moved))
	}
	return len(moved), nil
}
