package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/studentmarketplace/identity-service/internal/domain"
	"github.com/studentmarketplace/identity-service/internal/ports"
)

// JWTSigner implements HS256 access-token signing and parsing. The secret is
// held at adapter level so the application layer stays crypto-library
// agnostic.
type JWTSigner struct {
	secret []byte
}

// NewJWTSigner builds a signer from the configured server secret.
func NewJWTSigner(secret string) (*JWTSigner, error) {
	if secret == "" {
		return nil, errors.New("jwt signing secret is required")
	}
	return &JWTSigner{secret: []byte(secret)}, nil
}

type accessTokenClaims struct {
	UserID        string   `json:"user_id"`
	Roles         []string `json:"roles"`
	EmailVerified bool     `json:"email_verified"`
	jwt.RegisteredClaims
}

func (s *JWTSigner) Sign(claims ports.AuthClaims) (string, error) {
	roles := make([]string, 0, len(claims.Roles))
	for _, role := range claims.Roles {
		roles = append(roles, string(role))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessTokenClaims{
		UserID:        claims.UserID.String(),
		Roles:         roles,
		EmailVerified: claims.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	return token.SignedString(s.secret)
}

func (s *JWTSigner) ParseAndValidate(raw string) (ports.AuthClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &accessTokenClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired())
	if err != nil {
		return ports.AuthClaims{}, domain.ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*accessTokenClaims)
	if !ok || !parsed.Valid {
		return ports.AuthClaims{}, domain.ErrInvalidToken
	}
	// iat is ours to set on every token; a missing one means the token did
	// not come from this signer.
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return ports.AuthClaims{}, domain.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return ports.AuthClaims{}, domain.ErrInvalidToken
	}

	roles := make([]domain.Role, 0, len(claims.Roles))
	for _, role := range claims.Roles {
		roles = append(roles, domain.Role(role))
	}

	return ports.AuthClaims{
		UserID:        userID,
		Roles:         roles,
		EmailVerified: claims.EmailVerified,
		IssuedAt:      claims.IssuedAt.Time.UTC(),
		ExpiresAt:     claims.ExpiresAt.Time.UTC(),
	}, nil
}
