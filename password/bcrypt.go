package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost matches the cost the backend has always used for stored
	// hashes. Raising it only affects newly created hashes.
	DefaultCost = 10

	// maxPasswordLength is the bcrypt input limit. Input beyond 72 bytes is
	// silently truncated by the algorithm, so we reject it instead.
	maxPasswordLength = 72
)

var (
	// ErrMismatch is returned by Verify when the password does not match the
	// stored hash.
	ErrMismatch = errors.New("password mismatch")
	// ErrPasswordTooLong is returned for inputs past the bcrypt limit.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// Hasher wraps bcrypt with a fixed cost. The zero value is not usable; create
// one with NewHasher.
type Hasher struct {
	cost int
}

// NewHasher validates the cost and returns a Hasher. Cost zero selects
// DefaultCost.
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{cost: cost}, nil
}

// Hash returns the bcrypt hash of the password. The output embeds its own
// salt and cost, so Verify needs no extra parameters.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) > maxPasswordLength {
		return "", ErrPasswordTooLong
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(out), nil
}

// Verify checks the password against a stored hash. A wrong password returns
// ErrMismatch; a malformed hash returns the underlying bcrypt error.
func (h *Hasher) Verify(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return fmt.Errorf("bcrypt verify: %w", err)
}

// Cost reports the configured cost for new hashes.
func (h *Hasher) Cost() int {
	return h.cost
}
