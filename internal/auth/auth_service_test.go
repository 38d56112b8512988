package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"craftfolio/internal/database"
)

func newTestService(t *testing.T) *AuthService {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})

	service, err := NewAuthService(privatePEM, publicPEM, 15*time.Minute, 720*time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return service
}

func TestTokenPairRoundTrip(t *testing.T) {
	service := newTestService(t)

	pair, err := service.GenerateTokenPair(42)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	access, err := service.ValidateToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}
	if access.UserID != 42 || access.TokenType != "access" {
		t.Fatalf("unexpected access claims: %+v", access)
	}
	if access.ID != "" {
		t.Fatalf("access token must not carry a jti")
	}

	refresh, err := service.ValidateToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("validate refresh: %v", err)
	}
	if refresh.UserID != 42 || refresh.TokenType != "refresh" {
		t.Fatalf("unexpected refresh claims: %+v", refresh)
	}
	if refresh.ID == "" {
		t.Fatalf("refresh token must carry a jti")
	}
}

func TestValidateTokenRejectsForeignKey(t *testing.T) {
	issuer := newTestService(t)
	verifier := newTestService(t)

	pair, err := issuer.GenerateTokenPair(1)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if _, err := verifier.ValidateToken(pair.AccessToken); err == nil {
		t.Fatalf("token signed with another key must fail")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("секретный-пароль")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "секретный-пароль" {
		t.Fatalf("hash must not equal the password")
	}
	if !CheckPasswordHash("секретный-пароль", hash) {
		t.Fatalf("correct password must verify")
	}
	if CheckPasswordHash("другой", hash) {
		t.Fatalf("wrong password must not verify")
	}
}

func TestRequireAdmin(t *testing.T) {
	if err := RequireAdmin(nil); err == nil {
		t.Fatalf("nil user must be rejected")
	}
	if err := RequireAdmin(&database.User{IsAdmin: false, IsActive: true}); err == nil {
		t.Fatalf("non-admin must be rejected")
	}
	if err := RequireAdmin(&database.User{IsAdmin: true, IsActive: false}); err == nil {
		t.Fatalf("blocked admin must be rejected")
	}
	if err := RequireAdmin(&database.User{IsAdmin: true, IsActive: true}); err != nil {
		t.Fatalf("active admin must pass: %v", err)
	}
}
