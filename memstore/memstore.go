// Package memstore provides an in-memory UserStore for tests, examples, and
// single-process deployments.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fintrackhq/authkit"
)

// Store keeps users in two maps guarded by one RWMutex. Records handed out
// are copies; callers cannot mutate stored state.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*authkit.User
	byEmail map[string]*authkit.User
}

func New() *Store {
	return &Store{
		byID:    make(map[string]*authkit.User),
		byEmail: make(map[string]*authkit.User),
	}
}

func (s *Store) Create(_ context.Context, user authkit.NewUser) (*authkit.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return nil, authkit.ErrDuplicateEmail
	}

	now := time.Now()
	record := &authkit.User{
		ID:           uuid.NewString(),
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[record.ID] = record
	s.byEmail[record.Email] = record

	out := *record
	return &out, nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (*authkit.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byEmail[email]
	if !ok {
		return nil, authkit.ErrUserNotFound
	}
	out := *record
	return &out, nil
}

func (s *Store) GetByID(_ context.Context, id string) (*authkit.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byID[id]
	if !ok {
		return nil, authkit.ErrUserNotFound
	}
	out := *record
	return &out, nil
}

// Len reports the number of stored users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
