package authkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fintrackhq/authkit/internal/audit"
	"github.com/fintrackhq/authkit/internal/rate"
	"github.com/fintrackhq/authkit/password"
	"github.com/fintrackhq/authkit/session"
	"github.com/fintrackhq/authkit/token"
)

// Builder assembles an Engine. Construction is allocation-only; the single
// Redis round-trip happens in Build, which pings the backend before handing
// out a usable engine.
//
//	engine, err := authkit.New().
//		WithConfig(cfg).
//		WithRedis(client).
//		WithUserStore(store).
//		Build(ctx)
type Builder struct {
	cfg       Config
	cfgSet    bool
	redis     redis.UniversalClient
	userStore UserStore
	auditSink AuditSink
	built     bool
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// WithConfig sets the engine configuration. Required.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	b.cfgSet = true
	return b
}

// WithRedis sets the client backing the session slots and throttles.
// Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the account persistence backend. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.userStore = store
	return b
}

// WithAuditSink sets the destination for audit events. Optional; without it
// an enabled audit config falls back to a no-op sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration, wires the components, and verifies
// Redis connectivity. A Builder is single-use.
func (b *Builder) Build(ctx context.Context) (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if !b.cfgSet {
		return nil, errors.New("config is required")
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.userStore == nil {
		return nil, errors.New("user store is required")
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	signer, err := token.NewSigner(
		token.Config{Secret: b.cfg.Token.AccessSecret, TTL: b.cfg.Token.AccessTTL, Leeway: b.cfg.Token.Leeway},
		token.Config{Secret: b.cfg.Token.RefreshSecret, TTL: b.cfg.Token.RefreshTTL, Leeway: b.cfg.Token.Leeway},
	)
	if err != nil {
		return nil, fmt.Errorf("token signer: %w", err)
	}

	sessions, err := session.NewStore(b.redis, b.cfg.Session.KeyPrefix, b.cfg.Token.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	hasher, err := password.NewHasher(b.cfg.Password.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	var limiter *rate.Limiter
	if b.cfg.Limits.MaxLoginFailures > 0 || b.cfg.Limits.MaxRefreshCalls > 0 {
		limiter = rate.New(b.redis, rate.Config{
			MaxLoginFailures: b.cfg.Limits.MaxLoginFailures,
			LoginWindow:      b.cfg.Limits.LoginWindow,
			MaxRefreshCalls:  b.cfg.Limits.MaxRefreshCalls,
			RefreshWindow:    b.cfg.Limits.RefreshWindow,
			ThrottleByIP:     b.cfg.Limits.ThrottleByIP,
		})
	}

	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    b.cfg.Audit.Enabled,
		BufferSize: b.cfg.Audit.BufferSize,
		DropIfFull: b.cfg.Audit.DropIfFull,
	}, b.auditSink)

	engine := &Engine{
		signer:   signer,
		sessions: sessions,
		hasher:   hasher,
		users:    b.userStore,
		limiter:  limiter,
		audit:    dispatcher,
		metrics:  NewMetrics(b.cfg.Metrics),
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sessions.Ping(pingCtx); err != nil {
		dispatcher.Close()
		return nil, err
	}

	b.built = true
	return engine, nil
}
