package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	hash, err := h.Hash("s3cret-pass")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("hash equals plaintext")
	}

	if err := h.Verify(hash, "s3cret-pass"); err != nil {
		t.Fatalf("Verify correct password: %v", err)
	}
	if err := h.Verify(hash, "wrong-pass"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("Verify wrong password: %v", err)
	}
}

func TestHashesAreSalted(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	a, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
}

func TestTooLongPasswordRejected(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	if _, err := h.Hash(strings.Repeat("a", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("73-byte password: %v", err)
	}
	if _, err := h.Hash(strings.Repeat("a", 72)); err != nil {
		t.Fatalf("72-byte password: %v", err)
	}
}

func TestMalformedHash(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}

	err = h.Verify("not-a-bcrypt-hash", "whatever")
	if err == nil || errors.Is(err, ErrMismatch) {
		t.Fatalf("malformed hash: %v", err)
	}
}

func TestNewHasherValidation(t *testing.T) {
	if _, err := NewHasher(0); err != nil {
		t.Fatalf("zero cost should select default: %v", err)
	}
	if h, _ := NewHasher(0); h.Cost() != DefaultCost {
		t.Fatalf("cost = %d, want %d", h.Cost(), DefaultCost)
	}
	if _, err := NewHasher(bcrypt.MaxCost + 1); err == nil {
		t.Fatal("oversized cost accepted")
	}
	if _, err := NewHasher(2); err == nil {
		t.Fatal("undersized cost accepted")
	}
}
