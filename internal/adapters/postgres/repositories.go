package postgres

import (
	"github.com/studentmarketplace/identity-service/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Users      ports.UserRepository
	Tokens     ports.RefreshTokenRepository
	Challenges ports.ChallengeRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:      &userRepository{db: db},
		Tokens:     &refreshTokenRepository{db: db},
		Challenges: &challengeRepository{db: db},
	}
}
