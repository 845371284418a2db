package security

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/studentmarketplace/identity-service/internal/domain"
	"github.com/studentmarketplace/identity-service/internal/ports"
)

func TestNewJWTSignerRequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewJWTSigner(""); err == nil {
		t.Fatalf("empty secret must be rejected")
	}
	if _, err := NewJWTSigner("unit-test-secret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSignParseRoundTrip(t *testing.T) {
	t.Parallel()

	signer, err := NewJWTSigner("unit-test-secret")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	in := ports.AuthClaims{
		UserID:        uuid.New(),
		Roles:         []domain.Role{domain.RoleUser, domain.RoleVendor},
		EmailVerified: true,
		IssuedAt:      now,
		ExpiresAt:     now.Add(time.Hour),
	}

	raw, err := signer.Sign(in)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	out, err := signer.ParseAndValidate(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.UserID != in.UserID {
		t.Fatalf("user id mismatch: %s != %s", out.UserID, in.UserID)
	}
	if len(out.Roles) != 2 || out.Roles[0] != domain.RoleUser || out.Roles[1] != domain.RoleVendor {
		t.Fatalf("roles mismatch: %v", out.Roles)
	}
	if !out.EmailVerified {
		t.Fatalf("email_verified flag lost")
	}
	if !out.ExpiresAt.Equal(in.ExpiresAt) {
		t.Fatalf("expiry mismatch: %s != %s", out.ExpiresAt, in.ExpiresAt)
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	t.Parallel()

	signer, _ := NewJWTSigner("unit-test-secret")
	now := time.Now().UTC()
	raw, err := signer.Sign(ports.AuthClaims{
		UserID:    uuid.New(),
		Roles:     []domain.Role{domain.RoleUser},
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// Corrupt the signature segment.
	parts := strings.Split(raw, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	for _, token := range []string{tampered, "garbage", ""} {
		if _, err := signer.ParseAndValidate(token); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	t.Parallel()

	alice, _ := NewJWTSigner("secret-a")
	mallory, _ := NewJWTSigner("secret-b")

	now := time.Now().UTC()
	raw, err := mallory.Sign(ports.AuthClaims{
		UserID:    uuid.New(),
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := alice.ParseAndValidate(raw); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign secret, got %v", err)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	signer, _ := NewJWTSigner("unit-test-secret")
	// Past the 30 second validation leeway.
	past := time.Now().UTC().Add(-2 * time.Hour)
	raw, err := signer.Sign(ports.AuthClaims{
		UserID:    uuid.New(),
		IssuedAt:  past,
		ExpiresAt: past.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := signer.ParseAndValidate(raw); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestParseRejectsTokenWithoutTimestamps(t *testing.T) {
	t.Parallel()

	secret := "unit-test-secret"
	signer, _ := NewJWTSigner(secret)

	// Signed with the right secret but carrying no exp/iat claims.
	bare := jwt.NewWithClaims(jwt.SigningMethodHS256, accessTokenClaims{
		UserID: uuid.NewString(),
		Roles:  []string{"USER"},
	})
	raw, err := bare.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign bare token: %v", err)
	}

	if _, err := signer.ParseAndValidate(raw); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for token without timestamps, got %v", err)
	}
}

func TestBcryptHasherRoundTrip(t *testing.T) {
	t.Parallel()

	hasher := NewBcryptHasher(4)

	hash, err := hasher.Hash("SecurePass123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "SecurePass123" {
		t.Fatalf("hash must not equal the plaintext")
	}
	if err := hasher.Compare(hash, "SecurePass123"); err != nil {
		t.Fatalf("compare with correct secret: %v", err)
	}
	if err := hasher.Compare(hash, "WrongPass123"); err == nil {
		t.Fatalf("compare with wrong secret must fail")
	}
}
