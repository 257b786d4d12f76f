package auth

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndVerifySessionToken(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	raw, err := m.GenerateSessionToken("user-1", "leo@example.com", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.VerifySessionToken(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if claims.UserID != "user-1" || claims.Email != "leo@example.com" || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if claims.IssuedTime().IsZero() {
		t.Fatal("issued time missing")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewManager("secret-a", time.Hour)
	verifier := NewManager("secret-b", time.Hour)

	raw, err := issuer.GenerateSessionToken("user-1", "leo@example.com", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = verifier.VerifySessionToken(raw)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)

	raw, err := m.GenerateSessionToken("user-1", "leo@example.com", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = m.VerifySessionToken(raw)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestExpiredAndTamperedAreIndistinguishable(t *testing.T) {
	expired := NewManager("test-secret", -time.Minute)
	other := NewManager("other-secret", time.Hour)

	rawExpired, _ := expired.GenerateSessionToken("user-1", "leo@example.com", "user")
	rawForeign, _ := other.GenerateSessionToken("user-1", "leo@example.com", "user")

	verifier := NewManager("test-secret", time.Hour)

	_, errExpired := verifier.VerifySessionToken(rawExpired)
	_, errForeign := verifier.VerifySessionToken(rawForeign)

	if !errors.Is(errExpired, ErrInvalidToken) || !errors.Is(errForeign, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for both, got %v and %v", errExpired, errForeign)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	if _, err := m.VerifySessionToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
