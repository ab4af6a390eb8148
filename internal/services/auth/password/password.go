// Package password hashes and verifies user passwords.
package password

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/pawtrail/pawtrail/internal/platform/errors"
)

// bcrypt rejects inputs longer than 72 bytes; we cap well below that.
const (
	minLength = 8
	maxLength = 64
)

// Hash derives a bcrypt hash from a plaintext password.
func Hash(plaintext string) (string, error) {
	if err := validate(plaintext); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Compare reports whether plaintext matches the stored hash. A mismatch
// returns CodeAuthInvalidCredentials so callers never distinguish a bad
// password from an unknown account.
func Compare(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return apperrors.New(apperrors.CodeAuthInvalidCredentials, "invalid email or password")
	}
	return fmt.Errorf("compare password: %w", err)
}

func validate(plaintext string) error {
	length := utf8.RuneCountInString(plaintext)
	if length < minLength {
		return apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("password must be at least %d characters", minLength))
	}
	if length > maxLength {
		return apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("password must be at most %d characters", maxLength))
	}
	return nil
}
