package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/studentmarketplace/identity-service/internal/domain"
	"github.com/studentmarketplace/identity-service/internal/ports"
)

// issueAccessToken mints a short-lived signed token embedding the user id and
// full role set. Verification is stateless; revocation lives with the refresh
// token instead.
func (s *Service) issueAccessToken(user domain.User) (string, error) {
	now := s.nowFn()
	return s.signer.Sign(ports.AuthClaims{
		UserID:        user.UserID,
		Roles:         user.Roles,
		EmailVerified: user.EmailVerifiedAt != nil,
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.cfg.AccessTokenTTL),
	})
}

// createSession stores a new opaque refresh token. Opaque random values, not
// signed tokens, keep revocation immediately effective: validity is a store
// lookup, never a signature check.
func (s *Service) createSession(ctx context.Context, user domain.User, client ClientContext) (domain.RefreshToken, error) {
	now := s.nowFn()
	token, err := s.tokens.Create(ctx, ports.RefreshTokenCreateParams{
		UserID:    user.UserID,
		Token:     uuid.NewString(),
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(s.cfg.RefreshTokenTTLDays) * 24 * time.Hour),
	})
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("create refresh token: %w", err)
	}
	return token, nil
}

// verifySession resolves an opaque refresh token for the expected owner.
// Expired or revoked tokens are revoked again as lazy cleanup and rejected.
func (s *Service) verifySession(ctx context.Context, refreshToken string, expectedUserID uuid.UUID) (domain.RefreshToken, error) {
	token, err := s.tokens.GetByToken(ctx, refreshToken)
	if err != nil {
		return domain.RefreshToken{}, domain.ErrUnauthorized
	}
	if token.UserID != expectedUserID {
		return domain.RefreshToken{}, domain.ErrUnauthorized
	}
	if !token.Valid(s.nowFn()) {
		if token.RevokedAt == nil {
			_ = s.tokens.Revoke(ctx, token.TokenID, s.nowFn())
		}
		return domain.RefreshToken{}, domain.ErrTokenExpired
	}
	return token, nil
}

// revokeSession marks one refresh token revoked. Revocation is explicit, not
// silently idempotent: revoking an already-invalid token fails with
// ErrAlreadyRevoked, so callers wanting idempotency must check state first.
func (s *Service) revokeSession(ctx context.Context, refreshToken string) error {
	token, err := s.tokens.GetByToken(ctx, refreshToken)
	if err != nil {
		return domain.ErrUnauthorized
	}
	if !token.Valid(s.nowFn()) {
		return domain.ErrAlreadyRevoked
	}
	return s.tokens.Revoke(ctx, token.TokenID, s.nowFn())
}
