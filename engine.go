package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fintrackhq/authkit/internal"
	"github.com/fintrackhq/authkit/internal/audit"
	"github.com/fintrackhq/authkit/internal/rate"
	"github.com/fintrackhq/authkit/password"
	"github.com/fintrackhq/authkit/session"
	"github.com/fintrackhq/authkit/token"
)

const minPasswordLength = 6

// Engine is the authentication service. It owns the token signer, the Redis
// session slots, the password hasher, and the account store, and is safe for
// concurrent use after Build.
type Engine struct {
	signer   *token.Signer
	sessions *session.Store
	hasher   *password.Hasher
	users    UserStore
	limiter  *rate.Limiter
	audit    *audit.Dispatcher
	metrics  *Metrics
}

// Register creates an account. The email is trimmed and lowercased before
// lookup and storage, so later logins are case-insensitive. A colliding email
// returns ErrEmailTaken; no tokens are issued, registration does not log the
// user in.
func (e *Engine) Register(ctx context.Context, name, email, pw string) (*User, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if err := validateRegistration(name, email, pw); err != nil {
		return nil, err
	}

	hash, err := e.hasher.Hash(pw)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password too long", ErrValidation)
		}
		return nil, err
	}

	user, err := e.users.Create(ctx, NewUser{Name: name, Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			e.metrics.Inc(MetricRegisterDuplicate)
			e.emitAudit(ctx, AuditRegister, "", email, false, ErrEmailTaken)
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	e.metrics.Inc(MetricRegisterSuccess)
	e.emitAudit(ctx, AuditRegister, user.ID, email, true, nil)
	return user, nil
}

// Login verifies the credentials and issues a fresh token pair. The refresh
// token's fingerprint overwrites the user's session slot, so a login on one
// device invalidates the refresh token held by another. Unknown email and
// wrong password are indistinguishable to the caller.
func (e *Engine) Login(ctx context.Context, email, pw string) (TokenPair, error) {
	if e == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	ip := clientIP(ctx)

	if err := e.limiter.CheckLogin(ctx, email, ip); err != nil {
		if errors.Is(err, rate.ErrLimited) {
			e.metrics.Inc(MetricLoginRateLimited)
			e.emitAudit(ctx, AuditLogin, "", email, false, ErrLoginRateLimited)
			return TokenPair{}, ErrLoginRateLimited
		}
		return TokenPair{}, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	user, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return TokenPair{}, e.failLogin(ctx, email, ip)
		}
		return TokenPair{}, err
	}

	if err := e.hasher.Verify(user.PasswordHash, pw); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return TokenPair{}, e.failLogin(ctx, email, ip)
		}
		return TokenPair{}, err
	}

	pair, err := e.issuePair(user.ID, user.Email)
	if err != nil {
		return TokenPair{}, err
	}

	if err := e.sessions.Set(ctx, user.ID, internal.FingerprintToken(pair.RefreshToken)); err != nil {
		return TokenPair{}, sessionErr(err)
	}

	// The login already succeeded; a stale failure counter is acceptable.
	_ = e.limiter.ResetLogin(ctx, email, ip)

	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditLogin, user.ID, email, true, nil)
	return pair, nil
}

func (e *Engine) failLogin(ctx context.Context, email, ip string) error {
	if err := e.limiter.RecordLoginFailure(ctx, email, ip); err != nil && !errors.Is(err, rate.ErrLimited) {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	e.metrics.Inc(MetricLoginFailure)
	e.emitAudit(ctx, AuditLogin, "", email, false, ErrInvalidCredentials)
	return ErrInvalidCredentials
}

// Refresh exchanges a live refresh token for a new pair. Validity is dual:
// the token must verify as a refresh JWT, and its fingerprint must still
// occupy the owner's slot. The slot swap is an atomic compare-and-set, so of
// any number of concurrent calls presenting the same token exactly one
// succeeds; the rest get ErrRefreshReuse and the slot keeps the winner's
// fingerprint.
func (e *Engine) Refresh(ctx context.Context, rawRefresh string) (TokenPair, error) {
	if e == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	claims, err := e.signer.Verify(token.KindRefresh, rawRefresh)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, AuditRefresh, "", "", false, ErrRefreshInvalid)
		return TokenPair{}, ErrRefreshInvalid
	}
	userID := claims.Subject

	if err := e.limiter.CheckRefresh(ctx, userID); err != nil {
		if errors.Is(err, rate.ErrLimited) {
			e.metrics.Inc(MetricRefreshRateLimited)
			e.emitAudit(ctx, AuditRefresh, userID, "", false, ErrRefreshRateLimited)
			return TokenPair{}, ErrRefreshRateLimited
		}
		return TokenPair{}, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}

	// Re-read the account so the new tokens carry current claims, and so a
	// deleted account cannot keep refreshing.
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metrics.Inc(MetricRefreshFailure)
			e.emitAudit(ctx, AuditRefresh, userID, "", false, ErrRefreshInvalid)
			return TokenPair{}, ErrRefreshInvalid
		}
		return TokenPair{}, err
	}

	pair, err := e.issuePair(user.ID, user.Email)
	if err != nil {
		return TokenPair{}, err
	}

	err = e.sessions.Rotate(ctx, user.ID,
		internal.FingerprintToken(rawRefresh),
		internal.FingerprintToken(pair.RefreshToken),
	)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrFingerprintMismatch):
		e.metrics.Inc(MetricRefreshReuse)
		e.emitAudit(ctx, AuditRefresh, user.ID, user.Email, false, ErrRefreshReuse)
		return TokenPair{}, ErrRefreshReuse
	case errors.Is(err, session.ErrSlotEmpty):
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, AuditRefresh, user.ID, user.Email, false, ErrRefreshInvalid)
		return TokenPair{}, ErrRefreshInvalid
	default:
		return TokenPair{}, sessionErr(err)
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditRefresh, user.ID, user.Email, true, nil)
	return pair, nil
}

// Logout clears the user's session slot, killing their refresh token even if
// it has not expired. Idempotent: logging out an already logged-out user
// succeeds.
func (e *Engine) Logout(ctx context.Context, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return fmt.Errorf("%w: empty user id", ErrValidation)
	}

	if err := e.sessions.Clear(ctx, userID); err != nil {
		return sessionErr(err)
	}

	e.metrics.Inc(MetricLogout)
	e.emitAudit(ctx, AuditLogout, userID, "", true, nil)
	return nil
}

// LogoutByAccessToken validates the access token and logs its subject out.
// Convenience for transports that guard the logout endpoint with the access
// token, as the HTTP layer does.
func (e *Engine) LogoutByAccessToken(ctx context.Context, rawAccess string) error {
	identity, err := e.ValidateAccess(rawAccess)
	if err != nil {
		return err
	}
	return e.Logout(ctx, identity.UserID)
}

// ValidateAccess checks an access token and returns the principal it was
// issued to. Stateless: no Redis round-trip, so a logout does not revoke
// outstanding access tokens before they expire.
func (e *Engine) ValidateAccess(rawAccess string) (Identity, error) {
	if e == nil {
		return Identity{}, ErrEngineNotReady
	}

	claims, err := e.signer.Verify(token.KindAccess, rawAccess)
	if err != nil {
		e.metrics.Inc(MetricValidateFailure)
		return Identity{}, ErrTokenInvalid
	}

	e.metrics.Inc(MetricValidateSuccess)
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// RefreshTTL reports the refresh-token lifetime, which transports use to
// align credential expiry (cookie MaxAge) with token expiry.
func (e *Engine) RefreshTTL() time.Duration {
	if e == nil {
		return 0
	}
	return e.sessions.TTL()
}

// Metrics exposes the live counter set for exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

func (e *Engine) issuePair(userID, email string) (TokenPair, error) {
	access, err := e.signer.Issue(token.KindAccess, userID, email)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := e.signer.Issue(token.KindRefresh, userID, email)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func sessionErr(err error) error {
	if errors.Is(err, session.ErrRedisUnavailable) {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(name, email, pw string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !validEmail(email) {
		return fmt.Errorf("%w: malformed email", ErrValidation)
	}
	if len(pw) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	return nil
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n")
}
