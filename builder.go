package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/catatanlab/authcore/access"
	"github.com/catatanlab/authcore/jwt"
	"github.com/catatanlab/authcore/password"
	"github.com/catatanlab/authcore/session"
)

// Builder assembles an Engine from its configuration and host-supplied
// collaborators. A Builder is single-use: Build succeeds at most once.
type Builder struct {
	config Config

	redis     redis.UniversalClient
	directory Directory
	mailer    Mailer
	auditSink AuditSink

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration wholesale. Callers that
// want defaults for most fields should start from New and mutate the
// builder's config through the narrower With methods instead.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the session and verification
// stores.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDirectory sets the host's credential store.
func (b *Builder) WithDirectory(dir Directory) *Builder {
	b.directory = dir
	return b
}

// WithMailer sets the verification code sender.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink enables auditing and routes events to sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and collaborators and returns a ready
// Engine. The builder cannot be reused afterwards.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.directory == nil {
		return nil, errors.New("directory required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		Secret: cfg.JWT.Secret,
		TTL:    cfg.JWT.TTL,
		Issuer: cfg.JWT.Issuer,
		Leeway: cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:            cfg,
		directory:         b.directory,
		mailer:            b.mailer,
		jwtManager:        jwtManager,
		passwordHash:      hasher,
		sessionStore:      session.NewStore(b.redis, cfg.Session.RedisPrefix),
		verificationStore: newVerificationStore(b.redis, cfg.Verification.RedisPrefix),
		evaluator:         access.NewEvaluator(b.directory),
		audit:             newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:           newMetrics(cfg.Metrics),
	}

	b.built = true

	return engine, nil
}
