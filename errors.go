package authkit

import "errors"

var (
	// ErrValidation covers malformed Register/Login input: missing fields,
	// invalid email shape, undersized password.
	ErrValidation = errors.New("invalid request")
	// ErrInvalidCredentials is returned for both unknown email and wrong
	// password so that login failures cannot be used to probe which emails
	// have accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned by Register when the email already has an
	// account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound is returned by UserStore implementations when no user
	// matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by UserStore implementations when Create
	// collides with an existing email. The engine maps it to ErrEmailTaken.
	ErrDuplicateEmail = errors.New("duplicate email")
	// ErrTokenInvalid is returned by ValidateAccess for any unusable access
	// token: bad signature, expired, wrong kind.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrRefreshInvalid is returned by Refresh when the presented token fails
	// verification or its owner has no live session.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshReuse is returned by Refresh when the token verifies but its
	// fingerprint no longer occupies the owner's slot: either it was already
	// rotated (a concurrent refresh won) or it survived a logout.
	ErrRefreshReuse = errors.New("refresh token superseded")
	// ErrLoginRateLimited is returned when an email or IP exhausted its
	// failed-login budget.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is returned when a user exhausted the refresh
	// budget for the current window.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrSessionUnavailable wraps Redis transport failures. Handlers should
	// translate it to 503, never to 401.
	ErrSessionUnavailable = errors.New("session backend unavailable")
	// ErrEngineNotReady is returned by Engine methods on a nil or unbuilt
	// engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
