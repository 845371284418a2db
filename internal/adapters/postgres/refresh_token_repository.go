package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/studentmarketplace/identity-service/internal/domain"
	"github.com/studentmarketplace/identity-service/internal/ports"
	"gorm.io/gorm"
)

type refreshTokenRepository struct {
	db *gorm.DB
}

func (r *refreshTokenRepository) Create(ctx context.Context, params ports.RefreshTokenCreateParams) (domain.RefreshToken, error) {
	rec := refreshTokenModel{
		UserID:    params.UserID,
		Token:     params.Token,
		IPAddress: nullableString(params.IPAddress),
		UserAgent: params.UserAgent,
		CreatedAt: params.CreatedAt,
		ExpiresAt: params.ExpiresAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.RefreshToken{}, err
	}
	return toDomainRefreshToken(rec), nil
}

func (r *refreshTokenRepository) GetByToken(ctx context.Context, token string) (domain.RefreshToken, error) {
	var rec refreshTokenModel
	if err := r.db.WithContext(ctx).Where("token = ?", token).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RefreshToken{}, domain.ErrNotFound
		}
		return domain.RefreshToken{}, err
	}
	return toDomainRefreshToken(rec), nil
}

// Revoke stamps revoked_at exactly once. A second call finds no matching
// unrevoked row and reports ErrAlreadyRevoked so the caller can surface it.
func (r *refreshTokenRepository) Revoke(ctx context.Context, tokenID uuid.UUID, revokedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&refreshTokenModel{}).
		Where("token_id = ?", tokenID).
		Where("revoked_at IS NULL").
		Update("revoked_at", revokedAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&refreshTokenModel{}).Where("token_id = ?", tokenID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrAlreadyRevoked
	}
	return nil
}
