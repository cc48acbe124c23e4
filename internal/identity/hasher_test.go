package identity

import (
	"bytes"
	"testing"
)

func TestHashPasswordSaltsFreshly(t *testing.T) {
	h1, err := HashPassword("secret1", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, err := HashPassword("secret1", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bytes.Equal(h1, h2) {
		t.Fatal("two hashes of the same password must not be equal")
	}
	if !VerifyPassword("secret1", h1) || !VerifyPassword("secret1", h2) {
		t.Fatal("both digests must verify against the original password")
	}
}

func TestVerifyPasswordMismatch(t *testing.T) {
	h, err := HashPassword("secret1", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if VerifyPassword("wrongpass", h) {
		t.Fatal("wrong password must not verify")
	}
	if VerifyPassword("secret1", []byte("not-a-digest")) {
		t.Fatal("garbage digest must not verify")
	}
}
