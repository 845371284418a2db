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

type challengeRepository struct {
	db *gorm.DB
}

// Replace deletes any prior challenge for the (destination, kind) pair and
// inserts the new one inside a transaction. The unique index on the pair keeps
// concurrent issuers from leaving two live rows.
func (r *challengeRepository) Replace(ctx context.Context, params ports.ChallengeCreateParams) (domain.Challenge, error) {
	var rec challengeModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("destination = ?", params.Destination).
			Where("kind = ?", string(params.Kind)).
			Delete(&challengeModel{}).Error; err != nil {
			return err
		}
		rec = challengeModel{
			Destination: params.Destination,
			Kind:        string(params.Kind),
			SecretHash:  params.SecretHash,
			Verified:    false,
			CreatedAt:   params.CreatedAt,
			ExpiresAt:   params.ExpiresAt,
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return domain.Challenge{}, err
	}
	return toDomainChallenge(rec), nil
}

func (r *challengeRepository) Get(ctx context.Context, destination string, kind domain.ChallengeKind) (domain.Challenge, error) {
	var rec challengeModel
	if err := r.db.WithContext(ctx).
		Where("destination = ?", destination).
		Where("kind = ?", string(kind)).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Challenge{}, domain.ErrNotFound
		}
		return domain.Challenge{}, err
	}
	return toDomainChallenge(rec), nil
}

func (r *challengeRepository) MarkVerified(ctx context.Context, challengeID uuid.UUID, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&challengeModel{}).
		Where("challenge_id = ?", challengeID).
		Updates(map[string]any{
			"verified":   true,
			"expires_at": expiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *challengeRepository) Delete(ctx context.Context, challengeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("challenge_id = ?", challengeID).
		Delete(&challengeModel{}).Error
}
