package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind selects which of the two signing configurations a token belongs to.
// Access and refresh tokens are signed with independent secrets so that a
// token of one kind can never verify as the other.
type Kind uint8

const (
	// KindAccess is the short-lived bearer credential sent on every request.
	KindAccess Kind = iota
	// KindRefresh is the long-lived credential used only to obtain new pairs.
	KindRefresh
)

const (
	issuerAccess  = "authkit/access"
	issuerRefresh = "authkit/refresh"
)

var (
	// ErrTokenInvalid covers every verification failure: bad signature,
	// malformed token, wrong kind, expiry. Callers must not branch on the
	// specific reason.
	ErrTokenInvalid = errors.New("invalid token")
)

// Config holds the signing parameters for a single token kind.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Leeway time.Duration
}

// Claims is the payload carried by both token kinds.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Signer issues and verifies the access/refresh token pair. It is immutable
// after construction and safe for concurrent use.
type Signer struct {
	access  Config
	refresh Config
	now     func() time.Time
}

// NewSigner validates both configurations and returns a ready Signer.
// The secrets must be non-empty and distinct, and the access TTL must be
// shorter than the refresh TTL.
func NewSigner(access, refresh Config) (*Signer, error) {
	if len(access.Secret) == 0 {
		return nil, errors.New("access secret must not be empty")
	}
	if len(refresh.Secret) == 0 {
		return nil, errors.New("refresh secret must not be empty")
	}
	if string(access.Secret) == string(refresh.Secret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if access.TTL <= 0 || refresh.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if access.TTL >= refresh.TTL {
		return nil, errors.New("access TTL must be shorter than refresh TTL")
	}
	if access.Leeway < 0 || refresh.Leeway < 0 {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Signer{
		access:  access,
		refresh: refresh,
		now:     time.Now,
	}, nil
}

// Issue signs a token of the given kind for the user. The jti claim carries a
// random UUID so that two tokens issued within the same second are still
// distinct strings.
func (s *Signer) Issue(kind Kind, userID, email string) (string, error) {
	cfg, issuer, err := s.kindConfig(kind)
	if err != nil {
		return "", err
	}

	now := s.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
}

// Verify parses and validates a token of the given kind. Any failure,
// including a valid token of the other kind, returns ErrTokenInvalid.
func (s *Signer) Verify(kind Kind, raw string) (*Claims, error) {
	cfg, issuer, err := s.kindConfig(kind)
	if err != nil {
		return nil, err
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return cfg.Secret, nil
	}, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// TTL reports the configured lifetime for the given kind. Used by HTTP layers
// to align cookie expiry with token expiry.
func (s *Signer) TTL(kind Kind) time.Duration {
	cfg, _, err := s.kindConfig(kind)
	if err != nil {
		return 0
	}
	return cfg.TTL
}

func (s *Signer) kindConfig(kind Kind) (Config, string, error) {
	switch kind {
	case KindAccess:
		return s.access, issuerAccess, nil
	case KindRefresh:
		return s.refresh, issuerRefresh, nil
	default:
		return Config{}, "", errors.New("unknown token kind")
	}
}
