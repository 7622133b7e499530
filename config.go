package authkit

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// TokenConfig carries the signing parameters for the JWT pair. The two
// secrets must differ; a shared secret would collapse the kind separation
// between access and refresh tokens.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
}

// SessionConfig controls the Redis slot store.
type SessionConfig struct {
	// KeyPrefix namespaces slot keys so several deployments can share one
	// Redis instance.
	KeyPrefix string
}

// PasswordConfig controls the bcrypt hasher. Cost zero selects the package
// default.
type PasswordConfig struct {
	BcryptCost int
}

// LimitsConfig tunes the optional brute-force throttles. Zero values leave
// the corresponding throttle off.
type LimitsConfig struct {
	MaxLoginFailures int
	LoginWindow      time.Duration
	MaxRefreshCalls  int
	RefreshWindow    time.Duration
	ThrottleByIP     bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// Config is the complete engine configuration. Build a baseline with
// DefaultConfig, override what the deployment needs, and pass it to
// [Builder.WithConfig]; Build calls Validate.
type Config struct {
	Token    TokenConfig
	Session  SessionConfig
	Password PasswordConfig
	Limits   LimitsConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// DefaultConfig returns the baseline configuration: 15 minute access tokens,
// 7 day refresh tokens, metrics on, audit and throttles off. Secrets have no
// default; Validate rejects a config without them.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Session: SessionConfig{
			KeyPrefix: "ak:rt",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for internal consistency. It is strict
// on purpose: a misconfigured auth engine should fail at startup, not at the
// first login.
func (c *Config) Validate() error {
	if len(c.Token.AccessSecret) < 32 {
		return errors.New("config: access secret must be at least 32 bytes")
	}
	if len(c.Token.RefreshSecret) < 32 {
		return errors.New("config: refresh secret must be at least 32 bytes")
	}
	if string(c.Token.AccessSecret) == string(c.Token.RefreshSecret) {
		return errors.New("config: access and refresh secrets must differ")
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if c.Token.AccessTTL >= c.Token.RefreshTTL {
		return errors.New("config: access TTL must be shorter than refresh TTL")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("config: leeway out of range")
	}
	if c.Session.KeyPrefix == "" {
		return errors.New("config: session key prefix must not be empty")
	}
	if c.Password.BcryptCost != 0 && (c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost) {
		return fmt.Errorf("config: bcrypt cost %d out of range", c.Password.BcryptCost)
	}
	if c.Limits.MaxLoginFailures < 0 || c.Limits.MaxRefreshCalls < 0 {
		return errors.New("config: throttle limits must not be negative")
	}
	if c.Limits.MaxLoginFailures > 0 && c.Limits.LoginWindow <= 0 {
		return errors.New("config: login throttle requires a positive window")
	}
	if c.Limits.MaxRefreshCalls > 0 && c.Limits.RefreshWindow <= 0 {
		return errors.New("config: refresh throttle requires a positive window")
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("config: audit buffer size must not be negative")
	}
	return nil
}
