package utils

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	h := PasswordHasher{Cost: bcrypt.MinCost}

	hashed, err := h.Hash("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hashed == "s3cret!" || !strings.HasPrefix(hashed, "$2") {
		t.Fatalf("unexpected hash %q", hashed)
	}
	if !h.Check("s3cret!", hashed) {
		t.Fatalf("correct password rejected")
	}
	if h.Check("wrong", hashed) {
		t.Fatalf("wrong password accepted")
	}
	if h.Check("s3cret!", "") {
		t.Fatalf("empty hash must never match")
	}

	again, _ := h.Hash("s3cret!")
	if again == hashed {
		t.Fatalf("hashes should be salted")
	}
}

func TestPasswordHasher_DefaultAndInvalidCost(t *testing.T) {
	if _, err := (PasswordHasher{Cost: 99}).Hash("x"); err == nil {
		t.Fatalf("expected invalid cost error")
	}

	hashed, err := PasswordHasher{}.Hash("pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hashed))
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	if cost != DefaultCost {
		t.Fatalf("cost = %d, want %d", cost, DefaultCost)
	}
}
