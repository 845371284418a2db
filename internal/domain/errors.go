package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether email or password failed.
	// The reason is to prevent account-enumeration side channels.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateAccount signals registration against an already verified email.
	ErrDuplicateAccount = errors.New("account with email already exists")
	// ErrAccountLocked signals temporary lockout after repeated failed attempts.
	ErrAccountLocked = errors.New("account locked")

	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrAlreadyRevoked = errors.New("token already revoked")

	// ErrChallengeExpired: expiry is discovered lazily at read time; the read
	// site also deletes the row.
	ErrChallengeExpired = errors.New("expired verification")
	ErrInvalidChallenge = errors.New("invalid verification")
	// ErrChallengeNotVerified guards consuming actions (resetting the password)
	// that skipped the verify step.
	ErrChallengeNotVerified = errors.New("verification not verified")

	ErrInvalidInput = errors.New("invalid input")

	// ErrMailDelivery is surfaced to the delivery subsystem's retry logic,
	// never to the caller that triggered the originating action.
	ErrMailDelivery = errors.New("mail delivery failed")
)
