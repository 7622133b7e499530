package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fingerprint is the SHA-256 digest of a raw refresh token. The store never
// sees the token itself.
type Fingerprint = [32]byte

var (
	// ErrSlotEmpty is returned when an operation expects a stored fingerprint
	// and the user has none (never logged in, logged out, or expired).
	ErrSlotEmpty = errors.New("session slot empty")
	// ErrFingerprintMismatch is returned by Rotate when the presented
	// fingerprint does not match the stored one. The slot is left untouched.
	ErrFingerprintMismatch = errors.New("refresh fingerprint mismatch")
	// ErrRedisUnavailable wraps transport-level Redis failures so callers can
	// separate infrastructure errors from authentication rejections.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// rotateLua compares the stored fingerprint against the presented one and
// swaps in the replacement in a single atomic step. This is the only place
// concurrent refreshes for the same user are serialized: the first script
// execution to match wins, every later one observes the winner's value and
// reports a mismatch without modifying the slot.
//
// Return codes: 0 = slot empty, 1 = mismatch, 2 = rotated.
var rotateLua = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
	return 0
end
if current ~= ARGV[1] then
	return 1
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 2
`)

const (
	rotateStatusEmpty    = 0
	rotateStatusMismatch = 1
	rotateStatusRotated  = 2
)

// Store keeps at most one refresh fingerprint per user in Redis. The slot is
// the server-side half of refresh-token validity: a refresh token is live only
// while its fingerprint occupies its owner's slot.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStore creates a store whose entries expire after ttl, which should equal
// the refresh-token TTL so the slot never outlives the token it validates.
func NewStore(client redis.UniversalClient, prefix string, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if prefix == "" {
		return nil, errors.New("key prefix is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	return &Store{redis: client, prefix: prefix, ttl: ttl}, nil
}

// Set unconditionally installs fp as the user's current fingerprint,
// displacing whatever was there. Used on login: a new login invalidates the
// previous device's refresh token.
func (s *Store) Set(ctx context.Context, userID string, fp Fingerprint) error {
	if err := s.redis.Set(ctx, s.key(userID), fp[:], s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Clear removes the user's slot. Deleting an absent slot is not an error, so
// logout is idempotent.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Matches reports whether fp is the user's current fingerprint. Read-only;
// rotation must go through Rotate.
func (s *Store) Matches(ctx context.Context, userID string, fp Fingerprint) (bool, error) {
	stored, err := s.redis.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, ErrSlotEmpty
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(stored) != len(fp) {
		return false, nil
	}
	return subtle.ConstantTimeCompare(stored, fp[:]) == 1, nil
}

// Rotate atomically replaces current with next, refreshing the slot TTL.
// It fails with ErrSlotEmpty when the user has no slot and with
// ErrFingerprintMismatch when the slot holds a different fingerprint; in both
// cases the slot is not modified, so a losing concurrent refresh cannot
// destroy the winner's state.
func (s *Store) Rotate(ctx context.Context, userID string, current, next Fingerprint) error {
	status, err := rotateLua.Run(ctx, s.redis,
		[]string{s.key(userID)},
		current[:], next[:], s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch status {
	case rotateStatusRotated:
		return nil
	case rotateStatusEmpty:
		return ErrSlotEmpty
	case rotateStatusMismatch:
		return ErrFingerprintMismatch
	default:
		return fmt.Errorf("%w: unexpected rotate status %d", ErrRedisUnavailable, status)
	}
}

// Ping verifies Redis connectivity. Builders call it once at startup.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// TTL reports the configured slot lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) key(userID string) string {
	return s.prefix + ":" + userID
}
