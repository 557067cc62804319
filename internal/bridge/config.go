package bridge

import (
	"errors"
	"fmt"
	"time"
)

// Signing modes.
const (
	ModeHMAC    = "hmac"
	ModeEd25519 = "ed25519"
)

// Config controls the bridge client.
type Config struct {
	// Endpoint receives transmissions. An empty endpoint disables the
	// bridge.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// HealthEndpoint receives signed pings.
	HealthEndpoint string `yaml:"health_endpoint" json:"health_endpoint"`

	// SigningMode is "hmac" (default) or "ed25519".
	SigningMode string `yaml:"signing_mode" json:"signing_mode"`

	// Secret is the HMAC-SHA256 key.
	Secret string `yaml:"secret" json:"-"`

	// Ed25519Seed is the hex encoded 32 byte private key seed.
	Ed25519Seed string `yaml:"ed25519_seed" json:"-"`

	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`

	AwaitAck   bool          `yaml:"await_ack" json:"await_ack"`
	AckTimeout time.Duration `yaml:"ack_timeout" json:"ack_timeout"`

	// NonceCleanupSize is the number of most recent nonces kept by cleanup.
	NonceCleanupSize int           `yaml:"nonce_cleanup_size" json:"nonce_cleanup_size"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`

	// MaxConcurrent bounds in-flight sends.
	MaxConcurrent int `yaml:"max_concurrent" json:"max_concurrent"`

	// DegradedLatency is the health ping latency above which the bridge
	// reports degraded rather than active.
	DegradedLatency time.Duration `yaml:"degraded_latency" json:"degraded_latency"`
}

// DefaultConfig returns the standard bridge settings with no endpoint.
func DefaultConfig() Config {
	return Config{
		SigningMode:      ModeHMAC,
		MaxAttempts:      3,
		Timeout:          5 * time.Second,
		BaseDelay:        200 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		AckTimeout:       10 * time.Second,
		NonceCleanupSize: 10000,
		CleanupInterval:  time.Minute,
		MaxConcurrent:    8,
		DegradedLatency:  time.Second,
	}
}

// Enabled reports whether a receive endpoint is configured.
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}

// Validate checks the settings a client cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint is required"))
	}
	switch c.SigningMode {
	case "", ModeHMAC:
		if c.Secret == "" {
			errs = append(errs, errors.New("hmac mode requires a secret"))
		}
	case ModeEd25519:
		if c.Ed25519Seed == "" {
			errs = append(errs, errors.New("ed25519 mode requires a seed"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown signing mode %q", c.SigningMode))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, errors.New("max_attempts must be at least 1"))
	}
	if c.Timeout <= 0 || c.AckTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.NonceCleanupSize < 1 {
		errs = append(errs, errors.New("nonce_cleanup_size must be at least 1"))
	}
	return errors.Join(errs...)
}
