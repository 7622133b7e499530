// Package rate implements the fixed-window brute-force throttles used around
// login and refresh, backed by Redis counters.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrLimited is returned when an identifier has exhausted its window.
	ErrLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transport failures from the counter backend.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Config tunes the login and refresh throttles. Zero values disable the
// corresponding throttle.
type Config struct {
	MaxLoginFailures int
	LoginWindow      time.Duration
	MaxRefreshCalls  int
	RefreshWindow    time.Duration
	ThrottleByIP     bool
}

// Limiter counts failed logins per email (and optionally per IP) and refresh
// calls per user. Counters live in Redis with fixed-window TTLs, so every
// engine instance sharing the Redis backend shares the budget.
type Limiter struct {
	redis redis.UniversalClient
	cfg   Config
}

func New(client redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: client, cfg: cfg}
}

// CheckLogin rejects the attempt when the email or IP has too many recent
// failures. It does not consume budget; only RecordLoginFailure does.
func (l *Limiter) CheckLogin(ctx context.Context, email, ip string) error {
	if l == nil || l.cfg.MaxLoginFailures <= 0 {
		return nil
	}
	if err := l.check(ctx, loginEmailKey(email), l.cfg.MaxLoginFailures); err != nil {
		return err
	}
	if l.cfg.ThrottleByIP && ip != "" {
		return l.check(ctx, loginIPKey(ip), l.cfg.MaxLoginFailures)
	}
	return nil
}

// RecordLoginFailure consumes one unit of login budget for the email+IP pair.
func (l *Limiter) RecordLoginFailure(ctx context.Context, email, ip string) error {
	if l == nil || l.cfg.MaxLoginFailures <= 0 {
		return nil
	}
	if _, err := l.bump(ctx, loginEmailKey(email), l.cfg.LoginWindow); err != nil {
		return err
	}
	if l.cfg.ThrottleByIP && ip != "" {
		if _, err := l.bump(ctx, loginIPKey(ip), l.cfg.LoginWindow); err != nil {
			return err
		}
	}
	return nil
}

// ResetLogin clears the failure counters after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, email, ip string) error {
	if l == nil || l.cfg.MaxLoginFailures <= 0 {
		return nil
	}
	keys := []string{loginEmailKey(email)}
	if l.cfg.ThrottleByIP && ip != "" {
		keys = append(keys, loginIPKey(ip))
	}
	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CheckRefresh consumes one unit of refresh budget for the user and rejects
// the call once the window is exhausted.
func (l *Limiter) CheckRefresh(ctx context.Context, userID string) error {
	if l == nil || l.cfg.MaxRefreshCalls <= 0 {
		return nil
	}
	count, err := l.bump(ctx, refreshKey(userID), l.cfg.RefreshWindow)
	if err != nil {
		return err
	}
	if count > int64(l.cfg.MaxRefreshCalls) {
		return ErrLimited
	}
	return nil
}

func (l *Limiter) check(ctx context.Context, key string, limit int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(limit) {
		return ErrLimited
	}
	return nil
}

func (l *Limiter) bump(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// Fixed window: the TTL is set by the first hit and rides out the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}

func loginEmailKey(email string) string { return "ak:rl:login:e:" + email }
func loginIPKey(ip string) string       { return "ak:rl:login:ip:" + ip }
func refreshKey(userID string) string   { return "ak:rl:refresh:" + userID }
