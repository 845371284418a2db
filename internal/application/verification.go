package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/studentmarketplace/identity-service/internal/domain"
	"github.com/studentmarketplace/identity-service/internal/ports"
)

// ChallengeEngine creates, validates and consumes single-use hashed
// challenges. Secrets are hashed with the same primitive as passwords and the
// plaintext only ever leaves the process inside a queued mail job.
type ChallengeEngine struct {
	challenges   ports.ChallengeRepository
	hasher       ports.PasswordHasher
	publisher    ports.QueuePublisher
	ttl          time.Duration
	frontendHost string
	nowFn        func() time.Time
}

func NewChallengeEngine(
	challenges ports.ChallengeRepository,
	hasher ports.PasswordHasher,
	publisher ports.QueuePublisher,
	ttl time.Duration,
	frontendHost string,
) *ChallengeEngine {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ChallengeEngine{
		challenges:   challenges,
		hasher:       hasher,
		publisher:    publisher,
		ttl:          ttl,
		frontendHost: frontendHost,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}

// Create replaces any outstanding challenge for (user.Email, kind), stores the
// hash of a freshly generated secret and enqueues the notification job
// carrying the plaintext for out-of-band delivery.
func (e *ChallengeEngine) Create(ctx context.Context, user domain.User, kind domain.ChallengeKind, form domain.SecretForm) error {
	var secret string
	switch form {
	case domain.SecretFormToken:
		secret = randomHex(32)
	case domain.SecretFormOTP:
		secret = randomDigits(6)
	default:
		return fmt.Errorf("%w: unknown secret form %q", domain.ErrInvalidInput, form)
	}

	secretHash, err := e.hasher.Hash(secret)
	if err != nil {
		return fmt.Errorf("hash challenge secret: %w", err)
	}

	now := e.nowFn()
	if _, err := e.challenges.Replace(ctx, ports.ChallengeCreateParams{
		Destination: user.Email,
		Kind:        kind,
		SecretHash:  secretHash,
		CreatedAt:   now,
		ExpiresAt:   now.Add(e.ttl),
	}); err != nil {
		return err
	}

	mailCtx := map[string]string{
		"name": displayName(user),
	}
	if form == domain.SecretFormToken {
		mailCtx["verification_link"] = fmt.Sprintf(
			"%s/verifyUser/?token=%s&email=%s",
			e.frontendHost, secret, url.QueryEscape(user.Email),
		)
	} else {
		mailCtx["code"] = secret
	}
	mailCtx["expiry_minutes"] = fmt.Sprintf("%d", int(e.ttl.Minutes()))

	job := EmailJob{
		Template: templateForKind(kind),
		To:       user.Email,
		Context:  mailCtx,
	}
	if !e.publisher.Publish(ctx, EmailRoutingKey, job) {
		// Degraded broker: the challenge row exists but the mail is not
		// guaranteed sent. The caller's transaction must not fail over this.
		slog.Default().WarnContext(ctx, "challenge mail not enqueued",
			"module", "application.verification",
			"layer", "application",
			"operation", "create_challenge",
			"outcome", "degraded",
			"kind", string(kind),
			"destination", user.Email,
		)
	}

	slog.Default().InfoContext(ctx, "verification challenge created",
		"module", "application.verification",
		"layer", "application",
		"operation", "create_challenge",
		"outcome", "success",
		"kind", string(kind),
	)
	return nil
}

// Verify checks a presented secret against the outstanding challenge. On
// success the challenge is marked verified and its expiry extended by another
// window, leaving a bounded slot for the follow-up consuming action.
func (e *ChallengeEngine) Verify(ctx context.Context, user domain.User, kind domain.ChallengeKind, presented string) error {
	challenge, err := e.challenges.Get(ctx, user.Email, kind)
	if err != nil {
		return err
	}

	now := e.nowFn()
	if !now.Before(challenge.ExpiresAt) {
		_ = e.challenges.Delete(ctx, challenge.ChallengeID)
		return domain.ErrChallengeExpired
	}

	if err := e.hasher.Compare(challenge.SecretHash, presented); err != nil {
		return domain.ErrInvalidChallenge
	}

	return e.challenges.MarkVerified(ctx, challenge.ChallengeID, now.Add(e.ttl))
}

// Consume deletes a verified challenge at the moment its follow-up action
// lands (e.g. the password actually changes). Unverified challenges are
// rejected so the consuming call cannot skip the verify step.
func (e *ChallengeEngine) Consume(ctx context.Context, user domain.User, kind domain.ChallengeKind) error {
	challenge, err := e.challenges.Get(ctx, user.Email, kind)
	if err != nil {
		return err
	}

	if !e.nowFn().Before(challenge.ExpiresAt) {
		_ = e.challenges.Delete(ctx, challenge.ChallengeID)
		return domain.ErrChallengeExpired
	}
	if !challenge.Verified {
		return domain.ErrChallengeNotVerified
	}
	return e.challenges.Delete(ctx, challenge.ChallengeID)
}

func templateForKind(kind domain.ChallengeKind) string {
	if kind == domain.ChallengePasswordReset {
		return TemplatePasswordReset
	}
	return TemplateAccountVerification
}

func displayName(user domain.User) string {
	if user.FirstName != "" {
		return user.FirstName
	}
	return "user"
}
