package utils

import (
	"testing"
)

func TestGenerateAndParseJWT(t *testing.T) {
	t.Parallel()

	secret := "super-secret"
	tok, err := GenerateJWT(42, secret)
	if err != nil {
		t.Fatalf("GenerateJWT error: %v", err)
	}
	claims, err := ParseJWT(tok, secret)
	if err != nil {
		t.Fatalf("ParseJWT error: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("userID mismatch: got %d want 42", claims.UserID)
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateJWT(7, "right-secret")
	if err != nil {
		t.Fatalf("GenerateJWT error: %v", err)
	}
	if _, err := ParseJWT(tok, "wrong-secret"); err == nil {
		t.Fatalf("expected error for wrong secret, got nil")
	}
}

func TestParseJWT_Malformed(t *testing.T) {
	t.Parallel()

	if _, err := ParseJWT("not.a.jwt", "k"); err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}
