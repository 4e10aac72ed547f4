package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/izposoja/internal/model"
)

func TestIssueAndValidate(t *testing.T) {
	s := NewSigner("test-secret-key", time.Hour)

	token, err := s.Issue(1, "admin", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := s.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != 1 || claims.Username != "admin" || claims.Role != model.RoleAdmin {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != Issuer {
		t.Errorf("expected issuer %q, got %q", Issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("expected a token id")
	}
}

func TestTokenIDsAreUnique(t *testing.T) {
	s := NewSigner("secret", 0)
	a, _ := s.Issue(1, "a", model.RoleAssistant)
	b, _ := s.Issue(1, "a", model.RoleAssistant)

	ca, _ := s.Validate(a)
	cb, _ := s.Validate(b)
	if ca.ID == cb.ID {
		t.Error("two tokens share an id")
	}
}

func TestValidateWrongSecret(t *testing.T) {
	token, _ := NewSigner("secret1", time.Hour).Issue(1, "admin", model.RoleAdmin)

	_, err := NewSigner("secret2", time.Hour).Validate(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateGarbage(t *testing.T) {
	_, err := NewSigner("secret", time.Hour).Validate("not-a-token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateExpired(t *testing.T) {
	s := NewSigner("secret", time.Hour)
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := s.Issue(1, "admin", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	s.now = time.Now
	if _, err := s.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected expired token to be rejected, got %v", err)
	}
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := NewSigner("secret", time.Hour).Validate(token); err == nil {
		t.Error("expected HS512 token to be rejected")
	}
}

func TestValidateRejectsForeignIssuer(t *testing.T) {
	claims := Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))

	if _, err := NewSigner("secret", time.Hour).Validate(token); err == nil {
		t.Error("expected foreign issuer to be rejected")
	}
}

func TestDefaultTTL(t *testing.T) {
	s := NewSigner("secret", 0)
	if s.TTL() != DefaultTTL {
		t.Errorf("expected default ttl, got %v", s.TTL())
	}

	token, _ := s.Issue(1, "a", model.RoleAssistant)
	claims, _ := s.Validate(token)
	diff := time.Until(claims.ExpiresAt.Time) - DefaultTTL
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}
