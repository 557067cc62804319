// Package tracker runs the engine's data flow. An action is evaluated
// against the user's ledger record, may open a debt edge, and is followed by
// a lifecycle threshold check. Every mutation is appended to the audit chain
// and optionally forwarded over the signal bridge.
//
// Thread-safety: Tracker is safe for concurrent use. Mutations of one user
// are serialized through the lock map shared with the lifecycle engine.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/karmatracker/internal/audit"
	"github.com/roach88/karmatracker/internal/bridge"
	"github.com/roach88/karmatracker/internal/clock"
	"github.com/roach88/karmatracker/internal/debt"
	"github.com/roach88/karmatracker/internal/evaluator"
	"github.com/roach88/karmatracker/internal/keylock"
	"github.com/roach88/karmatracker/internal/ledger"
	"github.com/roach88/karmatracker/internal/lifecycle"
)

// Forwarder delivers audit events to an external consumer. Satisfied by
// *bridge.Client.
type Forwarder interface {
	Send(ctx context.Context, payload any) (bridge.Transmission, error)
}

// Components are the collaborators a Tracker coordinates. Locks must be the
// map the lifecycle engine was built with.
type Components struct {
	Users     ledger.Store
	Evaluator *evaluator.Evaluator
	Debts     *debt.Network
	Lifecycle *lifecycle.Engine
	Locks     *keylock.Map

	// Audit is optional. Without it mutations are not chained.
	Audit *audit.Chain

	// Forwarder is optional.
	Forwarder Forwarder
}

// Tracker is the engine facade.
type Tracker struct {
	users   ledger.Store
	eval    *evaluator.Evaluator
	debts   *debt.Network
	life    *lifecycle.Engine
	locks   *keylock.Map
	chain   *audit.Chain
	forward Forwarder

	decay   ledger.DecayRates
	weights ledger.Weights
	clock   clock.Clock
	logger  *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithDecayRates sets the rates applied before each evaluation.
func WithDecayRates(r ledger.DecayRates) Option {
	return func(t *Tracker) { t.decay = r }
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// New creates a Tracker.
func New(c Components, opts ...Option) (*Tracker, error) {
	switch {
	case c.Users == nil:
		return nil, errors.New("tracker: user store is required")
	case c.Evaluator == nil:
		return nil, errors.New("tracker: evaluator is required")
	case c.Debts == nil:
		return nil, errors.New("tracker: debt network is required")
	case c.Lifecycle == nil:
		return nil, errors.New("tracker: lifecycle engine is required")
	case c.Locks == nil:
		return nil, errors.New("tracker: lock map is required")
	}
	t := &Tracker{
		users:   c.Users,
		eval:    c.Evaluator,
		debts:   c.Debts,
		life:    c.Lifecycle,
		locks:   c.Locks,
		chain:   c.Audit,
		forward: c.Forwarder,
		decay:   ledger.DefaultDecayRates(),
		weights: c.Debts.Weights(),
		clock:   clock.System{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Debts returns the debt network.
func (t *Tracker) Debts() *debt.Network { return t.debts }

// Audit returns the audit chain, nil when auditing is off.
func (t *Tracker) Audit() *audit.Chain { return t.chain }

// Lifecycle returns the lifecycle engine.
func (t *Tracker) Lifecycle() *lifecycle.Engine { return t.life }

// Record returns a user's stored ledger record.
func (t *Tracker) Record(ctx context.Context, userID string) (ledger.Record, error) {
	return t.users.GetUser(ctx, userID)
}

// Register creates an empty ledger for userID.
func (t *Tracker) Register(ctx context.Context, userID string) (ledger.Record, error) {
	if userID == "" {
		return ledger.Record{}, errors.New("user id is empty")
	}
	r, ev, err := t.register(ctx, userID)
	if err != nil {
		return ledger.Record{}, err
	}
	t.forwardEvent(ctx, ev)
	return r, nil
}

func (t *Tracker) register(ctx context.Context, userID string) (ledger.Record, *Event, error) {
	unlock := t.locks.Lock(userID)
	defer unlock()

	r := ledger.NewRecord(userID, t.clock.Now())
	if err := t.users.InsertUser(ctx, r); err != nil {
		return ledger.Record{}, nil, err
	}
	return r, t.appendEvent(ctx, EventUserRegistered, userID, r), nil
}

// appendEvent chains an event. Callers hold the user's lock so the chain
// order matches the order of the mutations. Failures are logged; the
// mutation has already been stored.
func (t *Tracker) appendEvent(ctx context.Context, kind EventType, userID string, data any) *Event {
	ev := &Event{Type: kind, UserID: userID, Data: data, At: t.clock.Now()}
	if t.chain == nil {
		return ev
	}
	e, err := t.chain.Append(ctx, ev)
	if err != nil {
		t.logger.Error("audit append failed", "event", string(kind), "user_id", userID, "error", err)
		return ev
	}
	idx := e.LedgerIndex
	ev.AuditIndex = &idx
	return ev
}

// forwardEvent sends a chained event over the bridge. Callers have
// released the user's lock.
func (t *Tracker) forwardEvent(ctx context.Context, ev *Event) {
	if t.forward == nil || ev == nil {
		return
	}
	if _, err := t.forward.Send(ctx, ev); err != nil {
		t.logger.Warn("event not forwarded", "event", string(ev.Type), "user_id", ev.UserID, "kind", string(bridge.KindOf(err)), "error", err)
		return
	}
	ev.Forwarded = true
}

func relationshipErr(debtorID, receiverID, missingID string, err error) error {
	if errors.Is(err, ledger.ErrUserNotFound) {
		return &debt.RelationshipError{DebtorID: debtorID, ReceiverID: receiverID, Reason: fmt.Sprintf("user %s does not exist", missingID)}
	}
	return err
}
