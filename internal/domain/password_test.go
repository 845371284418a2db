package domain_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/studentmarketplace/identity-service/internal/domain"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "SecurePass123", false},
		{"minimum length", "abcdef12", false},
		{"too short", "abc123", true},
		{"too long", strings.Repeat("a1", 65), true},
		{"letters only", "OnlyLettersHere", true},
		{"digits only", "1234567890", true},
		{"empty", "", true},
	}
	for _, tc := range cases {
		err := domain.ValidatePassword(tc.password)
		if tc.wantErr {
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
	}
}

func TestRefreshTokenValidity(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	live := domain.RefreshToken{ExpiresAt: now.Add(time.Hour)}
	if !live.Valid(now) {
		t.Fatalf("unexpired unrevoked token must be valid")
	}

	expired := domain.RefreshToken{ExpiresAt: now.Add(-time.Minute)}
	if expired.Valid(now) {
		t.Fatalf("expired token must be invalid")
	}

	revokedAt := now.Add(-time.Minute)
	revoked := domain.RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt}
	if revoked.Valid(now) {
		t.Fatalf("revoked token must be invalid")
	}
}
