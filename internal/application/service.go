package application

import (
	"time"

	"github.com/studentmarketplace/identity-service/internal/domain"
	"github.com/studentmarketplace/identity-service/internal/ports"
)

// EmailRoutingKey is the delivery-subsystem routing key for transactional
// mail jobs.
const EmailRoutingKey = "identity.email"

// Config is the application-level tuning supplied at bootstrap.
type Config struct {
	AccessTokenTTL       time.Duration
	RefreshTokenTTLDays  int
	ChallengeTTL         time.Duration
	FailedLoginThreshold int
	LockoutDuration      time.Duration
	FrontendHost         string
}

// Service is the identity orchestrator. It sequences the hasher, the
// challenge engine, the session manager and the delivery subsystem; all
// non-trivial state machines live in those collaborators.
type Service struct {
	cfg        Config
	users      ports.UserRepository
	tokens     ports.RefreshTokenRepository
	challenges *ChallengeEngine
	lockouts   ports.LockoutStore
	hasher     ports.PasswordHasher
	signer     ports.TokenSigner
	mailer     ports.Mailer
	nowFn      func() time.Time
}

type Dependencies struct {
	Config     Config
	Users      ports.UserRepository
	Tokens     ports.RefreshTokenRepository
	Challenges *ChallengeEngine
	Lockouts   ports.LockoutStore
	Hasher     ports.PasswordHasher
	Signer     ports.TokenSigner
	Mailer     ports.Mailer
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTLDays <= 0 {
		cfg.RefreshTokenTTLDays = 7
	}
	return &Service{
		cfg:        cfg,
		users:      deps.Users,
		tokens:     deps.Tokens,
		challenges: deps.Challenges,
		lockouts:   deps.Lockouts,
		hasher:     deps.Hasher,
		signer:     deps.Signer,
		mailer:     deps.Mailer,
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}

// DefaultRoles is the role set granted on registration.
func DefaultRoles() []domain.Role {
	return []domain.Role{domain.RoleUser}
}
