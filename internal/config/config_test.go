package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/karmatracker/internal/evaluator"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "karma.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/karma/karma.db", cfg.Store.Path)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver, "unset fields keep defaults")
	assert.Equal(t, -200.0, cfg.Lifecycle.DeathThreshold)
	assert.Equal(t, -200.0, cfg.Evaluator.Guidance.DeathThreshold)
	assert.Equal(t, []float64{0, 50, 300}, cfg.Lifecycle.LokaThresholds)
	assert.Equal(t, []float64{-5, -15}, cfg.Evaluator.Cheat.Penalties)
	assert.Equal(t, 12*time.Hour, cfg.Evaluator.Cheat.Window)
	assert.Equal(t, 48*time.Hour, cfg.Evaluator.Cheat.ResetAfter)
	assert.Equal(t, evaluator.ActionConfig{Base: -3, Token: "paap", Tier: "minor"}, cfg.Evaluator.Actions["gossip"])
	assert.Equal(t, 10, cfg.Audit.SnapshotWindow)
	assert.Equal(t, "https://consumer.example/stp", cfg.Bridge.Endpoint)
	assert.Equal(t, 2*time.Second, cfg.Bridge.Timeout)
	assert.True(t, cfg.Bridge.AwaitAck)
	assert.Equal(t, 3, cfg.Bridge.MaxAttempts)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "lifecycle:\n  death_treshold: -10\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "death_treshold")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvDBPath, "/tmp/env.db")
	t.Setenv(EnvDeathThreshold, "-50")
	t.Setenv(EnvBridgeEndpoint, "http://localhost:9000")
	t.Setenv(EnvBridgeSecret, "env-secret")
	t.Setenv(EnvBridgeTimeout, "750ms")
	t.Setenv(EnvBridgeAwaitAck, "true")
	t.Setenv(EnvGraphURI, "neo4j://localhost:7687")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(filepath.Join("testdata", "karma.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env.db", cfg.Store.Path)
	assert.Equal(t, -50.0, cfg.Lifecycle.DeathThreshold)
	assert.Equal(t, -50.0, cfg.Evaluator.Guidance.DeathThreshold)
	assert.Equal(t, "http://localhost:9000", cfg.Bridge.Endpoint)
	assert.Equal(t, "env-secret", cfg.Bridge.Secret)
	assert.Equal(t, 750*time.Millisecond, cfg.Bridge.Timeout)
	assert.True(t, cfg.Graph.Enabled())
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestEnvInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{EnvDeathThreshold, "very low"},
		{EnvSnapshotWindow, "ten"},
		{EnvBridgeTimeout, "soon"},
		{EnvBridgeAwaitAck, "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestSchemaRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"positive death threshold", func(c *Config) { c.Lifecycle.DeathThreshold = 10 }},
		{"unsorted loka thresholds", func(c *Config) { c.Lifecycle.LokaThresholds = []float64{0, 500, 100} }},
		{"too few loka thresholds", func(c *Config) { c.Lifecycle.LokaThresholds = []float64{0, 100} }},
		{"decay rate above one", func(c *Config) { c.Ledger.Decay.PaapMinor = 1.5 }},
		{"roles out of order", func(c *Config) { c.Ledger.Roles.Mentor = 50 }},
		{"negative weight", func(c *Config) { c.Ledger.Weights.Dridha = -1 }},
		{"unknown token", func(c *Config) {
			c.Evaluator.Actions = map[string]evaluator.ActionConfig{"x": {Base: 1, Token: "gold"}}
		}},
		{"positive cheat penalty", func(c *Config) { c.Evaluator.Cheat.Penalties = []float64{5} }},
		{"zero bridge timeout", func(c *Config) { c.Bridge.Timeout = 0 }},
		{"zero attempts", func(c *Config) { c.Bridge.MaxAttempts = 0 }},
		{"unknown signing mode", func(c *Config) { c.Bridge.SigningMode = "rsa" }},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var se *SchemaError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.NotEmpty(t, se.Problems)
		})
	}
}

func TestValidateEnabledBridgeNeedsSecret(t *testing.T) {
	cfg := Default()
	cfg.Bridge.Endpoint = "http://localhost:9000"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hmac mode requires a secret")
}

func TestValidateSQLiteNeedsPath(t *testing.T) {
	cfg := Default()
	cfg.Store.Path = ""
	assert.Error(t, cfg.Validate())

	cfg.Store.Driver = DriverMemory
	assert.NoError(t, cfg.Validate())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "karma.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "karma.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.False(t, cfg.Bridge.Enabled())
	assert.False(t, cfg.Graph.Enabled())
}
