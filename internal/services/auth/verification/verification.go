// Package verification issues and delivers the short-lived email codes
// that confirm account ownership.
package verification

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

// EmailSender delivers transactional mail. Implementations must be safe
// for concurrent use.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// GenerateCode returns a random six-digit numeric code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
