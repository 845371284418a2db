package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/studentmarketplace/identity-service/internal/domain"
)

// ForgotPassword issues a password-reset challenge. Unknown emails get the
// same success message so the endpoint cannot be used for account enumeration.
func (s *Service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (string, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return "", err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "Reset password code sent to your email", nil
	}

	if err := s.challenges.Create(ctx, user, domain.ChallengePasswordReset, domain.SecretFormOTP); err != nil {
		return "", err
	}

	slog.Default().InfoContext(ctx, "password reset requested",
		"module", "application",
		"layer", "application",
		"operation", "forgot_password",
		"outcome", "success",
		"user_id", user.UserID,
	)
	return "Reset password code sent to your email", nil
}

// VerifyForgotPassword confirms the reset code, leaving a bounded window for
// the actual password change.
func (s *Service) VerifyForgotPassword(ctx context.Context, req VerifyForgotPasswordRequest) (string, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return "", err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", domain.ErrInvalidChallenge
	}

	if err := s.challenges.Verify(ctx, user, domain.ChallengePasswordReset, req.Code); err != nil {
		return "", err
	}

	slog.Default().InfoContext(ctx, "password reset verified",
		"module", "application",
		"layer", "application",
		"operation", "verify_forgot_password",
		"outcome", "success",
		"user_id", user.UserID,
	)
	return "Password reset code verified, proceed to reset password", nil
}

// ResetPassword consumes the verified challenge and replaces the password
// hash. Consumption fails for missing, expired or never-verified challenges,
// so the reset cannot skip the verify step.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) (string, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return "", err
	}
	if req.Password != req.ConfirmPassword {
		return "", fmt.Errorf("%w: password fields do not match", domain.ErrInvalidInput)
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return "", err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", domain.ErrInvalidChallenge
	}

	if err := s.challenges.Consume(ctx, user, domain.ChallengePasswordReset); err != nil {
		return "", err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.UserID, passwordHash, s.nowFn()); err != nil {
		return "", err
	}

	slog.Default().InfoContext(ctx, "password reset completed",
		"module", "application",
		"layer", "application",
		"operation", "reset_password",
		"outcome", "success",
		"user_id", user.UserID,
	)
	return "Password changed successfully", nil
}
