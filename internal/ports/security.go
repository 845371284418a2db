package ports

import (
	"time"

	"github.com/google/uuid"
	"github.com/studentmarketplace/identity-service/internal/domain"
)

// PasswordHasher is the one-way hashing primitive shared by passwords and
// challenge secrets. Compare keeps timing characteristics uniform; secrets are
// never compared as plain strings.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Compare(hash, secret string) error
}

// AuthClaims is the payload embedded in a signed access token.
type AuthClaims struct {
	UserID        uuid.UUID
	Roles         []domain.Role
	EmailVerified bool
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// TokenSigner issues and verifies stateless access tokens. ParseAndValidate
// returns domain.ErrInvalidToken when signature or expiry checks fail.
type TokenSigner interface {
	Sign(claims AuthClaims) (string, error)
	ParseAndValidate(token string) (AuthClaims, error)
}
