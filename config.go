package authcore

import (
	"errors"
	"time"
)

// Config is the complete engine configuration. It is read once at
// Builder.Build and treated as immutable afterwards; in particular the
// signing secret is never hot-reloaded.
type Config struct {
	JWT          JWTConfig
	Session      SessionConfig
	Verification VerificationConfig
	Password     PasswordConfig
	Account      AccountConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

// JWTConfig controls the signed session tokens.
type JWTConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

// SessionConfig controls the ActiveToken store.
type SessionConfig struct {
	RedisPrefix string
}

// VerificationConfig controls the one-time account verification codes.
type VerificationConfig struct {
	RedisPrefix string
	CodeDigits  int
	CodeTTL     time.Duration
	// MaxResends caps resends beyond the initial issuance. The counter is
	// never reset by expiry; only a fresh issue (possible solely when no
	// row exists) restarts it.
	MaxResends int
}

// PasswordConfig holds the argon2id cost parameters.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// AccountConfig controls registration defaults and the verification gate.
type AccountConfig struct {
	// DefaultRole is assigned to every self-registered user.
	DefaultRole string
	// VerificationGatedRoles lists the roles whose members cannot log in
	// before verifying their email. Roles outside the set bypass the gate;
	// administrative accounts are pre-verified by construction.
	VerificationGatedRoles []string
	// DefaultProfilePhoto is used when no photo is supplied.
	DefaultProfilePhoto string
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

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			TTL:    24 * time.Hour,
			Issuer: "authcore",
		},
		Session: SessionConfig{
			RedisPrefix: "at",
		},
		Verification: VerificationConfig{
			RedisPrefix: "avc",
			CodeDigits:  6,
			CodeTTL:     10 * time.Minute,
			MaxResends:  3,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        2,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Account: AccountConfig{
			DefaultRole:            "client",
			VerificationGatedRoles: []string{"client"},
			DefaultProfilePhoto:    "default-profile.png",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = append([]byte(nil), cfg.JWT.Secret...)
	out.Account.VerificationGatedRoles = append([]string(nil), cfg.Account.VerificationGatedRoles...)
	return out
}

func validateConfig(cfg Config) error {
	if len(cfg.JWT.Secret) < 32 {
		return errors.New("config: JWT secret must be at least 32 bytes")
	}
	if cfg.JWT.TTL <= 0 {
		return errors.New("config: JWT TTL must be positive")
	}
	if cfg.Verification.CodeDigits <= 0 || cfg.Verification.CodeDigits > 18 {
		return errors.New("config: verification code digits out of range")
	}
	if cfg.Verification.CodeTTL <= 0 {
		return errors.New("config: verification code TTL must be positive")
	}
	if cfg.Verification.MaxResends < 0 {
		return errors.New("config: verification max resends must not be negative")
	}
	if cfg.Account.DefaultRole == "" {
		return errors.New("config: default role must be set")
	}
	return nil
}
