package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fintrackhq/authkit"
)

func TestCreateAndLookup(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.Create(ctx, authkit.NewUser{Name: "Ana", Email: "ana@example.com", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("empty user id")
	}

	byEmail, err := s.GetByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("lookup mismatch: %q vs %q", byEmail.ID, created.ID)
	}

	byID, err := s.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID.Email != "ana@example.com" {
		t.Fatalf("email = %q", byID.Email)
	}
}

func TestDuplicateEmail(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.Create(ctx, authkit.NewUser{Name: "Ana", Email: "ana@example.com", PasswordHash: "h"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := s.Create(ctx, authkit.NewUser{Name: "Other", Email: "ana@example.com", PasswordHash: "h2"})
	if !errors.Is(err, authkit.ErrDuplicateEmail) {
		t.Fatalf("duplicate create: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestMissingUser(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.GetByEmail(ctx, "ghost@example.com"); !errors.Is(err, authkit.ErrUserNotFound) {
		t.Fatalf("GetByEmail: %v", err)
	}
	if _, err := s.GetByID(ctx, "nope"); !errors.Is(err, authkit.ErrUserNotFound) {
		t.Fatalf("GetByID: %v", err)
	}
}

func TestRecordsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.Create(ctx, authkit.NewUser{Name: "Ana", Email: "ana@example.com", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	created.Name = "mutated"

	fresh, err := s.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fresh.Name != "Ana" {
		t.Fatalf("stored record mutated through returned pointer: %q", fresh.Name)
	}
}

func TestConcurrentCreates(t *testing.T) {
	s := New()
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := "user" + string(rune('a'+i%26)) + string(rune('0'+i/26)) + "@example.com"
			_, _ = s.Create(ctx, authkit.NewUser{Name: "U", Email: email, PasswordHash: "h"})
		}(i)
	}
	wg.Wait()

	if s.Len() == 0 {
		t.Fatal("no users created")
	}
}
