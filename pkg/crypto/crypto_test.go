package crypto

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Sup3rsecret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "Sup3rsecret"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := ComparePassword(hash, "wrong"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestSealOpen(t *testing.T) {
	sealed, err := Seal("key", []byte(`{"token":"abc"}`))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	plain, err := Open("key", sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(plain, []byte(`{"token":"abc"}`)) {
		t.Fatalf("unexpected plaintext %q", plain)
	}
	if _, err := Open("other", sealed); err == nil {
		t.Fatalf("expected failure with wrong key")
	}
	if _, err := Open("key", []byte("short")); !errors.Is(err, ErrCiphertextTooShort) {
		t.Fatalf("expected short payload error, got %v", err)
	}
}
