package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordClampsLowCost(t *testing.T) {
	h, err := HashPassword("s3cret-pass", 1)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(h))
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if cost < bcrypt.DefaultCost {
		t.Errorf("cost = %d, want at least %d", cost, bcrypt.DefaultCost)
	}
	if !VerifyPassword(h, "s3cret-pass") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(h, "wrong-pass") {
		t.Error("wrong password accepted")
	}
}
