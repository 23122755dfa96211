package auth

import (
	"errors"
	"testing"
	"time"

	"crux-monitor-app/backend/internal/infra/token"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return NewService("admin", string(hash), token.NewJWTManager("test-secret", time.Hour))
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc := newTestService(t)

	access, err := svc.Login("admin", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if access.Token == "" {
		t.Fatal("expected token")
	}
	if !access.ExpiresAt.After(time.Now()) {
		t.Fatalf("token already expired: %v", access.ExpiresAt)
	}

	parsed, err := jwt.Parse(access.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("parse token: %v", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || claims["sub"] != "admin" {
		t.Fatalf("unexpected claims: %+v", parsed.Claims)
	}
}

func TestLoginRejectsWrongCredentials(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Login("admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login("root", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong username: expected ErrInvalidCredentials, got %v", err)
	}
}
