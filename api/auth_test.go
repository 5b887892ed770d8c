package api

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestBearerTokenSuccess(t *testing.T) {
	token, err := bearerToken("Bearer header.payload.signature")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "header.payload.signature" {
		t.Fatalf("unexpected token content: %s", token)
	}
}

func TestBearerTokenMissing(t *testing.T) {
	if _, err := bearerToken("   "); err != errMissingAuthorization {
		t.Fatalf("expected missing header error, got %v", err)
	}
}

func TestBearerTokenMalformed(t *testing.T) {
	cases := []string{
		"header.payload.signature",
		"Bearer ",
		"Bearer " + strings.Repeat(".", 1000),
		"Bearer onlyonepart",
	}
	for _, h := range cases {
		if _, err := bearerToken(h); err != errBadAuthorization {
			t.Fatalf("header %q: expected bad auth header error, got %v", h, err)
		}
	}
}

func newTestAuth(secret []byte) *Auth {
	return &Auth{
		Audience:   "api://aud",
		Issuer:     "https://issuer/",
		TestMode:   true,
		TestSecret: secret,
		parser:     jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestUserIDFromBearerHS256(t *testing.T) {
	secret := []byte("test-secret")
	signed := signToken(t, secret, jwt.MapClaims{
		"sub": "user-123",
		"aud": "api://aud",
		"iss": "https://issuer/",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"nbf": time.Now().Add(-time.Minute).Unix(),
		"iat": time.Now().Add(-time.Minute).Unix(),
	})

	auth := newTestAuth(secret)
	userID, err := auth.UserIDFromBearer([]byte(signed))
	if err != nil {
		t.Fatalf("unexpected error verifying token: %v", err)
	}
	if userID != "user-123" {
		t.Fatalf("unexpected user id: %s", userID)
	}
}

func TestUserIDFromBearerExpired(t *testing.T) {
	secret := []byte("test-secret")
	signed := signToken(t, secret, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(-5 * time.Minute).Unix(),
	})

	if _, err := newTestAuth(secret).UserIDFromBearer([]byte(signed)); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestUserIDFromBearerWrongAudience(t *testing.T) {
	secret := []byte("test-secret")
	signed := signToken(t, secret, jwt.MapClaims{
		"sub": "user-123",
		"aud": "api://other",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	})

	if _, err := newTestAuth(secret).UserIDFromBearer([]byte(signed)); err == nil {
		t.Fatal("expected wrong audience to be rejected")
	}
}

func TestUserIDFromBearerMissingSub(t *testing.T) {
	secret := []byte("test-secret")
	signed := signToken(t, secret, jwt.MapClaims{
		"aud": "api://aud",
		"iss": "https://issuer/",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	})

	if _, err := newTestAuth(secret).UserIDFromBearer([]byte(signed)); err == nil {
		t.Fatal("expected missing sub to be rejected")
	}
}

func TestUserIDFromAuthHeader(t *testing.T) {
	secret := []byte("test-secret")
	signed := signToken(t, secret, jwt.MapClaims{
		"sub": "user-123",
		"aud": "api://aud",
		"iss": "https://issuer/",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	})

	userID, err := newTestAuth(secret).UserIDFromAuthHeader("Bearer " + signed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-123" {
		t.Fatalf("unexpected user id: %s", userID)
	}
}
