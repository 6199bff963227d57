package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("u1", []string{"servers:read", "metrics:read"}, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserId != "u1" {
		t.Fatalf("user=%s", claims.UserId)
	}
	if len(claims.Permissions) != 2 || claims.Permissions[0] != "servers:read" {
		t.Fatalf("permissions=%v", claims.Permissions)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("u1", nil, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseToken(token, "other-secret"); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestVerifier_ResolvesIdentity(t *testing.T) {
	token, err := GenerateToken("u1", []string{"servers:read"}, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	id, err := NewTokenVerifier(testSecret).Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != "u1" || len(id.Permissions) != 1 {
		t.Fatalf("identity=%#v", id)
	}
}

func TestVerifier_ExpiredToken(t *testing.T) {
	token, err := GenerateToken("u1", nil, testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = NewTokenVerifier(testSecret).Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifier_GarbageToken(t *testing.T) {
	_, err := NewTokenVerifier(testSecret).Verify("not.a.jwt")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
