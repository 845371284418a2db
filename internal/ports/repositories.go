package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/studentmarketplace/identity-service/internal/domain"
)

// CreateUserParams captures the registration write.
type CreateUserParams struct {
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Roles        []domain.Role
	RegisteredAt time.Time
}

// UserRepository defines persistence operations for marketplace identities.
// Not-found is reported as domain.ErrNotFound, distinctly from other failures.
type UserRepository interface {
	Create(ctx context.Context, params CreateUserParams) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	// Delete hard-deletes a user; only unverified duplicates superseded by a
	// fresh registration go through here. Refresh tokens cascade.
	Delete(ctx context.Context, userID uuid.UUID) error
	MarkVerified(ctx context.Context, userID uuid.UUID, verifiedAt time.Time) error
	TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string, updatedAt time.Time) error
}

// RefreshTokenCreateParams captures session metadata stored with a token.
type RefreshTokenCreateParams struct {
	UserID    uuid.UUID
	Token     string
	IPAddress string
	UserAgent string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RefreshTokenRepository manages persistent refresh-token lifecycle. Validity
// is data state, not a signature check, so revocation is immediate.
type RefreshTokenRepository interface {
	Create(ctx context.Context, params RefreshTokenCreateParams) (domain.RefreshToken, error)
	GetByToken(ctx context.Context, token string) (domain.RefreshToken, error)
	Revoke(ctx context.Context, tokenID uuid.UUID, revokedAt time.Time) error
}

// ChallengeCreateParams carries a single outstanding proof-of-control request.
type ChallengeCreateParams struct {
	Destination string
	Kind        domain.ChallengeKind
	SecretHash  string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// ChallengeRepository owns verification-challenge state. Replace removes any
// prior row for the same (destination, kind) and inserts the new one in a
// single transaction; a unique constraint backs the invariant under
// concurrent creations.
type ChallengeRepository interface {
	Replace(ctx context.Context, params ChallengeCreateParams) (domain.Challenge, error)
	Get(ctx context.Context, destination string, kind domain.ChallengeKind) (domain.Challenge, error)
	MarkVerified(ctx context.Context, challengeID uuid.UUID, expiresAt time.Time) error
	Delete(ctx context.Context, challengeID uuid.UUID) error
}
