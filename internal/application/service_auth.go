package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/studentmarketplace/identity-service/internal/domain"
	"github.com/studentmarketplace/identity-service/internal/ports"
)

// Register creates a disabled user and issues an account-verification
// challenge. An unverified holder of the same email is superseded; a verified
// one wins and the registration is rejected.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (string, error) {
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

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Enabled {
			return "", domain.ErrDuplicateAccount
		}
		// Stale unverified registration: remove it so the email can be
		// claimed again with fresh credentials.
		if err := s.users.Delete(ctx, existing.UserID); err != nil {
			return "", fmt.Errorf("supersede unverified user: %w", err)
		}
	case errors.Is(err, domain.ErrNotFound):
	default:
		return "", err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, ports.CreateUserParams{
		Email:        email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: passwordHash,
		Roles:        DefaultRoles(),
		RegisteredAt: s.nowFn(),
	})
	if err != nil {
		return "", err
	}

	if err := s.challenges.Create(ctx, user, domain.ChallengeAccountVerification, domain.SecretFormOTP); err != nil {
		return "", err
	}

	slog.Default().InfoContext(ctx, "user created",
		"module", "application",
		"layer", "application",
		"operation", "register",
		"outcome", "success",
		"user_id", user.UserID,
	)
	return "Confirm your account in the email sent", nil
}

// VerifyRegistration proves control of the registration email, enables the
// account and logs the user straight in.
func (s *Service) VerifyRegistration(ctx context.Context, req VerifyRegistrationRequest, client ClientContext) (AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return AuthResponse{}, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return AuthResponse{}, domain.ErrInvalidCredentials
	}

	if err := s.challenges.Verify(ctx, user, domain.ChallengeAccountVerification, req.Code); err != nil {
		return AuthResponse{}, err
	}
	if err := s.challenges.Consume(ctx, user, domain.ChallengeAccountVerification); err != nil {
		return AuthResponse{}, err
	}

	now := s.nowFn()
	if err := s.users.MarkVerified(ctx, user.UserID, now); err != nil {
		return AuthResponse{}, err
	}
	_ = s.users.TouchLastLogin(ctx, user.UserID, now)
	user.Enabled = true
	user.EmailVerifiedAt = &now
	user.LastLoginAt = &now

	welcome := EmailJob{
		Template: TemplateRegistrationWelcome,
		To:       user.Email,
		Context: map[string]string{
			"name":       displayName(user),
			"login_link": s.cfg.FrontendHost + "/login",
		},
	}
	if !s.challenges.publisher.Publish(ctx, EmailRoutingKey, welcome) {
		slog.Default().WarnContext(ctx, "welcome mail not enqueued",
			"module", "application",
			"layer", "application",
			"operation", "verify_registration",
			"outcome", "degraded",
		)
	}

	slog.Default().InfoContext(ctx, "user verified",
		"module", "application",
		"layer", "application",
		"operation", "verify_registration",
		"outcome", "success",
		"user_id", user.UserID,
	)
	return s.authResponse(ctx, user, client)
}

// Login validates credentials and starts a new device session. Unknown user
// and wrong password map to the same error; unverified accounts may still log
// in and the access token carries email_verified=false.
func (s *Service) Login(ctx context.Context, req LoginRequest, client ClientContext) (AuthResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return AuthResponse{}, err
	}

	lockKey := "login:" + email
	if state, lockErr := s.lockouts.Get(ctx, lockKey); lockErr == nil &&
		state.LockedUntil != nil && state.LockedUntil.After(s.nowFn()) {
		slog.Default().WarnContext(ctx, "account lockout active",
			"module", "application",
			"layer", "application",
			"operation", "login",
			"outcome", "blocked",
			"email", email,
			"locked_until", state.LockedUntil,
		)
		return AuthResponse{}, domain.ErrAccountLocked
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return AuthResponse{}, domain.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		now := s.nowFn()
		state, lockErr := s.lockouts.RecordFailure(ctx, lockKey, now, s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration)
		if lockErr == nil && state.LockedUntil != nil && state.LockedUntil.After(now) {
			return AuthResponse{}, domain.ErrAccountLocked
		}
		return AuthResponse{}, domain.ErrInvalidCredentials
	}
	_ = s.lockouts.Clear(ctx, lockKey)

	now := s.nowFn()
	_ = s.users.TouchLastLogin(ctx, user.UserID, now)
	user.LastLoginAt = &now

	slog.Default().InfoContext(ctx, "user logged in",
		"module", "application",
		"layer", "application",
		"operation", "login",
		"outcome", "success",
		"user_id", user.UserID,
	)
	return s.authResponse(ctx, user, client)
}

// Logout revokes the presented refresh token. Revoking a token that is already
// revoked or expired fails with ErrAlreadyRevoked rather than succeeding
// silently.
func (s *Service) Logout(ctx context.Context, req LogoutRequest) (string, error) {
	if err := s.revokeSession(ctx, req.RefreshToken); err != nil {
		return "", err
	}
	slog.Default().InfoContext(ctx, "user logged out",
		"module", "application",
		"layer", "application",
		"operation", "logout",
		"outcome", "success",
	)
	return "User logged out successfully", nil
}

// RefreshToken mints a fresh access token against a live session. The refresh
// token itself is returned unchanged; rotation happens on login/verification.
func (s *Service) RefreshToken(ctx context.Context, req RefreshTokenRequest) (AuthResponse, error) {
	if _, err := s.verifySession(ctx, req.RefreshToken, req.UserID); err != nil {
		return AuthResponse{}, err
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return AuthResponse{}, domain.ErrInvalidCredentials
	}

	accessToken, err := s.issueAccessToken(user)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("sign access token: %w", err)
	}

	return AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: req.RefreshToken,
		User:         toProfile(user),
	}, nil
}

// authResponse issues the access token plus a brand-new refresh token.
func (s *Service) authResponse(ctx context.Context, user domain.User, client ClientContext) (AuthResponse, error) {
	accessToken, err := s.issueAccessToken(user)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("sign access token: %w", err)
	}
	session, err := s.createSession(ctx, user, client)
	if err != nil {
		return AuthResponse{}, err
	}
	return AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: session.Token,
		User:         toProfile(user),
	}, nil
}
