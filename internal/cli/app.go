package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/roach88/karmatracker/internal/audit"
	"github.com/roach88/karmatracker/internal/bridge"
	"github.com/roach88/karmatracker/internal/config"
	"github.com/roach88/karmatracker/internal/debt"
	"github.com/roach88/karmatracker/internal/evaluator"
	"github.com/roach88/karmatracker/internal/graph"
	"github.com/roach88/karmatracker/internal/keylock"
	"github.com/roach88/karmatracker/internal/ledger"
	"github.com/roach88/karmatracker/internal/lifecycle"
	"github.com/roach88/karmatracker/internal/logging"
	"github.com/roach88/karmatracker/internal/store"
	"github.com/roach88/karmatracker/internal/tracker"
)

// backend is what both store implementations provide.
type backend interface {
	ledger.Store
	debt.EdgeStore
	audit.Sink
	audit.SnapshotSink
	ListUsers(ctx context.Context) ([]string, error)
}

// app is one command's view of the engine, built from configuration.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	store   backend
	tracker *tracker.Tracker
	mirror  *debt.GraphMirror
	bridge  *bridge.Client

	closers []func() error
}

// loadConfig resolves configuration and applies the global flags on top.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Store.Driver = config.DriverSQLite
		cfg.Store.Path = opts.Database
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func openApp(ctx context.Context, opts *RootOptions, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logging.New(logOut, cfg.Log)}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) build(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.Store.Driver {
	case config.DriverMemory:
		a.store = store.NewMemory()
	default:
		a.logger.Debug("opening database", "path", cfg.Store.Path)
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		a.store = st
		a.closers = append(a.closers, st.Close)
	}

	w := cfg.Ledger.Weights
	ev, err := evaluator.New(cfg.Evaluator, w, cfg.Ledger.Roles)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build evaluator", err)
	}

	network := debt.NewNetwork(a.store, a.store, w, debt.WithLogger(a.logger))
	if cfg.Graph.Enabled() {
		client, err := graph.NewNeo4jClient(ctx, cfg.Graph)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to connect to graph", err)
		}
		a.closers = append(a.closers, func() error { return client.Close(context.Background()) })
		a.mirror = debt.NewGraphMirror(client, network)
		a.mirror.Attach(network)
	}

	locks := keylock.New()
	life, err := lifecycle.NewEngine(a.store, cfg.Lifecycle, w,
		lifecycle.WithLocks(locks),
		lifecycle.WithDebtMover(network),
		lifecycle.WithLogger(a.logger),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build lifecycle engine", err)
	}

	chainOpts := []audit.ChainOption{audit.WithLogger(a.logger)}
	if cfg.Audit.SnapshotWindow > 0 {
		chainOpts = append(chainOpts, audit.WithSnapshots(a.store, cfg.Audit.SnapshotWindow))
	}
	chain, err := audit.OpenChain(ctx, a.store, chainOpts...)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open audit chain", err)
	}

	components := tracker.Components{
		Users:     a.store,
		Evaluator: ev,
		Debts:     network,
		Lifecycle: life,
		Locks:     locks,
		Audit:     chain,
	}
	if cfg.Bridge.Enabled() {
		client, err := bridge.NewClient(cfg.Bridge, bridge.WithLogger(a.logger))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to build bridge client", err)
		}
		a.bridge = client
		components.Forwarder = client
	}

	a.tracker, err = tracker.New(components,
		tracker.WithDecayRates(cfg.Ledger.Decay),
		tracker.WithLogger(a.logger),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build tracker", err)
	}
	return nil
}

// Close releases the store and graph connections.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// withApp opens the engine, runs fn and closes it again.
func withApp(ctx context.Context, opts *RootOptions, logOut io.Writer, fn func(*app) error) error {
	a, err := openApp(ctx, opts, logOut)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.logger.Error("error closing engine", "error", closeErr)
		}
	}()
	return fn(a)
}
