package authkit

import (
	"context"
	"time"
)

// User is the account record the engine works with. PasswordHash never
// serializes; transports decide which of the remaining fields to expose.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewUser is the input to UserStore.Create. Email arrives already normalized
// to lower case and PasswordHash already computed; stores persist, they do
// not transform.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
}

// UserStore is the persistence boundary for accounts. Implementations must
// return ErrUserNotFound for missing records and ErrDuplicateEmail when
// Create collides on email, and must be safe for concurrent use.
type UserStore interface {
	Create(ctx context.Context, user NewUser) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// TokenPair is the result of Login and Refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Identity is the authenticated principal extracted from a valid access
// token.
type Identity struct {
	UserID string
	Email  string
}
