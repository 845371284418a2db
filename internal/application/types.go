package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/studentmarketplace/identity-service/internal/domain"
)

// ClientContext carries caller network metadata captured at the HTTP boundary.
type ClientContext struct {
	IPAddress string
	UserAgent string
}

type RegisterRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type VerifyRegistrationRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenRequest struct {
	RefreshToken string    `json:"refresh_token"`
	UserID       uuid.UUID `json:"user_id"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type VerifyForgotPasswordRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResetPasswordRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// UserProfile is the user payload returned alongside tokens.
type UserProfile struct {
	UserID          uuid.UUID     `json:"user_id"`
	Email           string        `json:"email"`
	FirstName       string        `json:"first_name"`
	LastName        string        `json:"last_name"`
	Roles           []domain.Role `json:"roles"`
	Enabled         bool          `json:"enabled"`
	EmailVerifiedAt *time.Time    `json:"email_verified_at,omitempty"`
	LastLoginAt     *time.Time    `json:"last_login_at,omitempty"`
}

// AuthResponse carries the issued credentials after login, verification or
// refresh.
type AuthResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserProfile `json:"user"`
}

// EmailJob is the payload published to the delivery subsystem for out-of-band
// mail. The plaintext challenge secret rides inside Context and never
// persists anywhere else.
type EmailJob struct {
	Template string            `json:"template"`
	To       string            `json:"to"`
	Context  map[string]string `json:"context"`
}

// Mail template identifiers, keyed off the originating flow.
const (
	TemplateAccountVerification = "account_verification"
	TemplatePasswordReset       = "password_reset"
	TemplateRegistrationWelcome = "registration_welcome"
)

func toProfile(user domain.User) UserProfile {
	return UserProfile{
		UserID:          user.UserID,
		Email:           user.Email,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		Roles:           user.Roles,
		Enabled:         user.Enabled,
		EmailVerifiedAt: user.EmailVerifiedAt,
		LastLoginAt:     user.LastLoginAt,
	}
}
