package application

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/mail"
	"strings"

	"github.com/studentmarketplace/identity-service/internal/domain"
)

// normalizeEmail canonicalizes and validates email format before persistence
// or comparison.
func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

// randomHex returns a cryptographically random hex token.
func randomHex(bytesLen int) string {
	raw := make([]byte, bytesLen)
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}

// randomDigits returns a zero-padded random numeric code of fixed width.
func randomDigits(size int) string {
	if size <= 0 {
		size = 6
	}
	bound := big.NewInt(1)
	for i := 0; i < size; i++ {
		bound.Mul(bound, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		// crypto/rand read failure is unrecoverable at this level.
		panic(fmt.Sprintf("generate numeric code: %v", err))
	}
	return fmt.Sprintf("%0*d", size, n)
}
