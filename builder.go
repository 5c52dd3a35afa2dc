package cashflow

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cooperrunyan/cashflow/internal/audit"
	"github.com/cooperrunyan/cashflow/internal/rate"
	"github.com/cooperrunyan/cashflow/jwt"
	"github.com/cooperrunyan/cashflow/password"
)

// Builder assembles an Engine. A Builder can build exactly once.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	logger    *slog.Logger
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New starts a Builder with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client used by the login throttle. It is only
// required when Security.EnableLoginThrottle is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides the clock used for token expiry and audit timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build validates the configuration and constructs the Engine. Any error is
// a fatal startup condition.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Security.EnableLoginThrottle && b.redis == nil {
		return nil, errors.New("EnableLoginThrottle requires redis client")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	hasher, err := password.NewArgon2(cfg.passwordConfig())
	if err != nil {
		return nil, err
	}

	tokens, err := jwt.NewManager(jwt.Config{
		SigningKey: cloneBytes(cfg.JWT.SigningKey),
		TTL:        cfg.JWT.TTL,
		Issuer:     cfg.JWT.Issuer,
		Now:        b.clock,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cfg,
		hasher:  hasher,
		tokens:  tokens,
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
		clock:   b.clock,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	if cfg.Security.EnableLoginThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                cfg.Security.RedisPrefix,
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}

	// Unknown emails are compared against this so they cost a full check.
	engine.dummyDigest = hasher.Hash(uuid.NewString())

	b.built = true

	return engine, nil
}
