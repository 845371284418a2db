package postgres

import (
	"errors"
	"strings"

	"github.com/studentmarketplace/identity-service/internal/domain"
	"gorm.io/gorm"
)

func toDomainUser(row userModel) domain.User {
	roles := make([]domain.Role, 0, len(row.Roles))
	for _, name := range row.Roles {
		roles = append(roles, domain.Role(name))
	}
	return domain.User{
		UserID:          row.UserID,
		Email:           row.Email,
		FirstName:       row.FirstName,
		LastName:        row.LastName,
		PasswordHash:    row.PasswordHash,
		Roles:           roles,
		Enabled:         row.Enabled,
		LastLoginAt:     row.LastLoginAt,
		EmailVerifiedAt: row.EmailVerifiedAt,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func toDomainRefreshToken(row refreshTokenModel) domain.RefreshToken {
	ip := ""
	if row.IPAddress != nil {
		ip = *row.IPAddress
	}
	return domain.RefreshToken{
		TokenID:   row.TokenID,
		UserID:    row.UserID,
		Token:     row.Token,
		IPAddress: ip,
		UserAgent: row.UserAgent,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
		RevokedAt: row.RevokedAt,
	}
}

func toDomainChallenge(row challengeModel) domain.Challenge {
	return domain.Challenge{
		ChallengeID: row.ChallengeID,
		Destination: row.Destination,
		Kind:        domain.ChallengeKind(row.Kind),
		SecretHash:  row.SecretHash,
		Verified:    row.Verified,
		CreatedAt:   row.CreatedAt,
		ExpiresAt:   row.ExpiresAt,
	}
}

func rolesToStrings(roles []domain.Role) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
