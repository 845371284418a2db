package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the canonical marketplace identity record. Enabled flips to true only
// after a successful registration verification; an unverified duplicate may be
// superseded by a fresh registration.
type User struct {
	UserID          uuid.UUID
	Email           string
	FirstName       string
	LastName        string
	PasswordHash    string
	Roles           []Role
	Enabled         bool
	LastLoginAt     *time.Time
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RefreshToken models one device session. Validity is pure data state:
// revoked_at null and now before expires_at. Revocation targets a single
// token, never its siblings.
type RefreshToken struct {
	TokenID   uuid.UUID
	UserID    uuid.UUID
	Token     string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Valid reports whether the token may still mint access tokens.
func (t RefreshToken) Valid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// ChallengeKind distinguishes the proof-of-control flows.
type ChallengeKind string

const (
	ChallengeAccountVerification ChallengeKind = "ACCOUNT_VERIFICATION"
	ChallengePasswordReset       ChallengeKind = "PASSWORD_RESET"
)

// SecretForm selects how a challenge secret is generated and delivered.
type SecretForm string

const (
	// SecretFormToken is a long random opaque string delivered as a link.
	SecretFormToken SecretForm = "token"
	// SecretFormOTP is a fixed-width numeric code delivered in the mail body.
	SecretFormOTP SecretForm = "otp"
)

// Challenge is one outstanding proof-of-control request. Only the one-way hash
// of the secret is ever stored. At most one challenge per (destination, kind)
// can exist; the storage layer enforces this with a unique constraint.
type Challenge struct {
	ChallengeID uuid.UUID
	Destination string
	Kind        ChallengeKind
	SecretHash  string
	Verified    bool
	CreatedAt   time.Time
	ExpiresAt   time.Time
}
