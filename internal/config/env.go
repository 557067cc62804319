package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variables read by Load.
const (
	EnvDBDriver          = "KARMA_DB_DRIVER"
	EnvDBPath            = "KARMA_DB_PATH"
	EnvDeathThreshold    = "KARMA_DEATH_THRESHOLD"
	EnvSnapshotWindow    = "KARMA_AUDIT_SNAPSHOT_WINDOW"
	EnvBridgeEndpoint    = "KARMA_BRIDGE_ENDPOINT"
	EnvBridgeHealth      = "KARMA_BRIDGE_HEALTH_ENDPOINT"
	EnvBridgeSecret      = "KARMA_BRIDGE_SECRET"
	EnvBridgeSigningMode = "KARMA_BRIDGE_SIGNING_MODE"
	EnvBridgeSeed        = "KARMA_BRIDGE_ED25519_SEED"
	EnvBridgeTimeout     = "KARMA_BRIDGE_TIMEOUT"
	EnvBridgeAwaitAck    = "KARMA_BRIDGE_AWAIT_ACK"
	EnvGraphURI          = "KARMA_GRAPH_URI"
	EnvGraphDatabase     = "KARMA_GRAPH_DATABASE"
	EnvGraphUsername     = "KARMA_GRAPH_USERNAME"
	EnvGraphPassword     = "KARMA_GRAPH_PASSWORD"
	EnvLogLevel          = "KARMA_LOG_LEVEL"
	EnvLogFormat         = "KARMA_LOG_FORMAT"
)

func applyEnv(cfg *Config) error {
	setString(&cfg.Store.Driver, EnvDBDriver)
	setString(&cfg.Store.Path, EnvDBPath)
	setString(&cfg.Bridge.Endpoint, EnvBridgeEndpoint)
	setString(&cfg.Bridge.HealthEndpoint, EnvBridgeHealth)
	setString(&cfg.Bridge.Secret, EnvBridgeSecret)
	setString(&cfg.Bridge.SigningMode, EnvBridgeSigningMode)
	setString(&cfg.Bridge.Ed25519Seed, EnvBridgeSeed)
	setString(&cfg.Graph.URI, EnvGraphURI)
	setString(&cfg.Graph.Database, EnvGraphDatabase)
	setString(&cfg.Graph.Username, EnvGraphUsername)
	setString(&cfg.Graph.Password, EnvGraphPassword)
	setString(&cfg.Log.Level, EnvLogLevel)
	setString(&cfg.Log.Format, EnvLogFormat)

	if v := os.Getenv(EnvDeathThreshold); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDeathThreshold, err)
		}
		cfg.Lifecycle.DeathThreshold = f
	}
	if v := os.Getenv(EnvSnapshotWindow); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSnapshotWindow, err)
		}
		cfg.Audit.SnapshotWindow = n
	}
	if v := os.Getenv(EnvBridgeTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvBridgeTimeout, err)
		}
		cfg.Bridge.Timeout = d
	}
	if v := os.Getenv(EnvBridgeAwaitAck); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvBridgeAwaitAck, err)
		}
		cfg.Bridge.AwaitAck = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}
