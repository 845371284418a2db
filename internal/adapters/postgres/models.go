package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	UserID          uuid.UUID  `gorm:"column:user_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email           string     `gorm:"column:email"`
	FirstName       string     `gorm:"column:first_name"`
	LastName        string     `gorm:"column:last_name"`
	PasswordHash    string     `gorm:"column:password_hash"`
	Roles           []string   `gorm:"column:roles;type:jsonb;serializer:json"`
	Enabled         bool       `gorm:"column:enabled"`
	LastLoginAt     *time.Time `gorm:"column:last_login_at"`
	EmailVerifiedAt *time.Time `gorm:"column:email_verified_at"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type refreshTokenModel struct {
	TokenID   uuid.UUID  `gorm:"column:token_id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id"`
	Token     string     `gorm:"column:token"`
	IPAddress *string    `gorm:"column:ip_address"`
	UserAgent string     `gorm:"column:user_agent"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	ExpiresAt time.Time  `gorm:"column:expires_at"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
}

func (refreshTokenModel) TableName() string { return "refresh_tokens" }

type challengeModel struct {
	ChallengeID uuid.UUID `gorm:"column:challenge_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Destination string    `gorm:"column:destination"`
	Kind        string    `gorm:"column:kind"`
	SecretHash  string    `gorm:"column:secret_hash"`
	Verified    bool      `gorm:"column:verified"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (challengeModel) TableName() string { return "verification_challenges" }
