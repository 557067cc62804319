// Package config loads the engine configuration.
//
// Values are resolved in order: built-in defaults, an optional YAML file,
// then KARMA_* environment variables. The merged result is checked against
// an embedded CUE schema and the per-package Validate methods before it is
// returned. A loaded Config is treated as immutable.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/karmatracker/internal/bridge"
	"github.com/roach88/karmatracker/internal/evaluator"
	"github.com/roach88/karmatracker/internal/graph"
	"github.com/roach88/karmatracker/internal/ledger"
	"github.com/roach88/karmatracker/internal/lifecycle"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config aggregates every component's settings.
type Config struct {
	Store     StoreConfig      `yaml:"store" json:"store"`
	Ledger    LedgerConfig     `yaml:"ledger" json:"ledger"`
	Evaluator evaluator.Config `yaml:"evaluator" json:"evaluator"`
	Lifecycle lifecycle.Config `yaml:"lifecycle" json:"lifecycle"`
	Audit     AuditConfig      `yaml:"audit" json:"audit"`
	Bridge    bridge.Config    `yaml:"bridge" json:"bridge"`
	Graph     graph.Options    `yaml:"graph" json:"graph"`
	Log       LogConfig        `yaml:"log" json:"log"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	Path   string `yaml:"path" json:"path"`
}

// LedgerConfig holds the scoring constants shared by every component.
type LedgerConfig struct {
	Weights ledger.Weights        `yaml:"weights" json:"weights"`
	Decay   ledger.DecayRates     `yaml:"decay" json:"decay"`
	Roles   ledger.RoleThresholds `yaml:"roles" json:"roles"`
}

// AuditConfig controls the audit chain.
type AuditConfig struct {
	// SnapshotWindow is the number of entries sealed into each Merkle
	// snapshot. Zero disables snapshots.
	SnapshotWindow int `yaml:"snapshot_window" json:"snapshot_window"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level     string `yaml:"level" json:"level"`
	Format    string `yaml:"format" json:"format"` // text|json
	AddSource bool   `yaml:"add_source" json:"add_source"`
}

const (
	defaultDBPath         = "karma.db"
	defaultSnapshotWindow = 100
	defaultGraphSessions  = 10
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{Driver: DriverSQLite, Path: defaultDBPath},
		Ledger: LedgerConfig{
			Weights: ledger.DefaultWeights(),
			Decay:   ledger.DefaultDecayRates(),
			Roles:   ledger.DefaultRoleThresholds(),
		},
		Evaluator: evaluator.DefaultConfig(),
		Lifecycle: lifecycle.DefaultConfig(),
		Audit:     AuditConfig{SnapshotWindow: defaultSnapshotWindow},
		Bridge:    bridge.DefaultConfig(),
		Graph:     graph.Options{MaxConnections: defaultGraphSessions},
		Log:       LogConfig{Level: defaultLogLevel, Format: defaultLogFormat},
	}
}

// Load resolves the configuration. An empty path skips the file layer.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Evaluator.Guidance.DeathThreshold = cfg.Lifecycle.DeathThreshold
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// Validate checks cfg against the schema and each component's own rules.
func (c Config) Validate() error {
	if err := validateSchema(c); err != nil {
		return err
	}
	var errs []error
	if err := c.Lifecycle.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("lifecycle: %w", err))
	}
	if c.Bridge.Enabled() {
		if err := c.Bridge.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("bridge: %w", err))
		}
	}
	if c.Store.Driver == DriverSQLite && c.Store.Path == "" {
		errs = append(errs, errors.New("store: sqlite driver requires a path"))
	}
	return errors.Join(errs...)
}
