package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
)

// MinPasswordLength is the minimum required password length.
const MinPasswordLength = 8

// bcrypt only looks at the first 72 bytes.
const maxPasswordBytes = 72

var (
	ErrPasswordTooShort = circulation.Validation("password must be at least %d characters long", MinPasswordLength)
	ErrPasswordNoUpper  = circulation.Validation("password must contain at least one uppercase letter")
	ErrPasswordTooLong  = circulation.Validation("password exceeds maximum length of %d bytes", maxPasswordBytes)
)

// ValidatePassword enforces the registration rules: at least
// MinPasswordLength characters and one upper-case letter.
func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	for _, r := range password {
		if unicode.IsUpper(r) {
			return nil
		}
	}
	return ErrPasswordNoUpper
}

// HashPassword creates a bcrypt hash of the password.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a password with its hash.
func CheckPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return circulation.ErrInvalidCredentials
		}
		return err
	}
	return nil
}

// GenerateSessionSecret creates a random 32-byte secret for CSRF signing.
func GenerateSessionSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
