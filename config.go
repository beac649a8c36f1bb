package sessionauth

import (
	"errors"
	"time"
)

// Config carries all tunables for a [Manager]. Instances are intended to be
// configured before [Builder.Build] and treated as immutable afterwards.
type Config struct {
	JWT     JWTConfig
	Session SessionConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

// JWTConfig controls access-token issuance and verification.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default) or "hs256"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	// KeyID tags issued tokens so verifiers can select the right key during
	// a signing-key rollover. VerifyKeys maps key ids to verification keys;
	// old tokens stay verifiable while both keys are listed.
	KeyID      string
	VerifyKeys map[string][]byte
}

// SessionConfig controls refresh-session storage and rotation.
type SessionConfig struct {
	// RefreshTTL is the lifetime of each refresh session record. Rotation
	// grants the successor a fresh full lifetime.
	RefreshTTL time.Duration
	// StorePrefix namespaces session keys in the backing store.
	StorePrefix string
	// MaxLineageWalk bounds the revocation cascade walk. Lineages are
	// forward chains and cannot cycle, so this only guards against
	// corrupted successor pointers.
	MaxLineageWalk int
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the request path when the
	// dispatcher buffer is full. Dropped events are counted.
	DropIfFull bool
}

// MetricsConfig controls in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the recommended baseline: 5 minute access tokens,
// 30 day refresh sessions, audit and metrics enabled. Signing keys must be
// supplied by the caller; Validate rejects a config without them.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     5 * time.Minute,
			SigningMethod: "ed25519",
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			RefreshTTL:     30 * 24 * time.Hour,
			StorePrefix:    "sa",
			MaxLineageWalk: 256,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the config for values the Manager cannot operate with.
func (c Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT.AccessTTL must be positive")
	}
	if c.JWT.AccessTTL > c.Session.RefreshTTL {
		return errors.New("JWT.AccessTTL must not exceed Session.RefreshTTL")
	}
	switch c.JWT.SigningMethod {
	case "ed25519", "hs256":
	default:
		return errors.New("JWT.SigningMethod must be ed25519 or hs256")
	}
	if len(c.JWT.PrivateKey) == 0 {
		return errors.New("JWT.PrivateKey is required")
	}
	if c.Session.RefreshTTL <= 0 {
		return errors.New("Session.RefreshTTL must be positive")
	}
	if c.Session.StorePrefix == "" {
		return errors.New("Session.StorePrefix is required")
	}
	if c.Session.MaxLineageWalk <= 0 {
		return errors.New("Session.MaxLineageWalk must be positive")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.JWT.PrivateKey = append([]byte(nil), c.JWT.PrivateKey...)
	out.JWT.PublicKey = append([]byte(nil), c.JWT.PublicKey...)
	if c.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(c.JWT.VerifyKeys))
		for kid, key := range c.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = append([]byte(nil), key...)
		}
	}
	return out
}
