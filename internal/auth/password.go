package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 12
	// bcrypt ignores everything past 72 bytes, so longer input is refused
	// rather than silently truncated.
	MaxPasswordBytes = 72

	tokenBytes = 32
)

var (
	ErrInvalidPassword  = errors.New("invalid password")
	ErrPasswordTooShort = errors.New("password must be at least 12 characters")
	ErrPasswordTooLong  = errors.New("password exceeds maximum length of 72 bytes")
)

// ValidatePassword applies the length policy without hashing.
func ValidatePassword(password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(password) > MaxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword validates and bcrypt-hashes password. A cost outside
// bcrypt's range falls back to bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword returns ErrInvalidPassword on mismatch.
func CheckPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidPassword
	}
	return err
}

// GenerateAPIToken returns a bearer token to show the user once and the
// hash to store in its place.
func GenerateAPIToken() (plaintext string, hash string, err error) {
	plaintext, err = randomHex(tokenBytes)
	if err != nil {
		return "", "", err
	}
	return plaintext, HashToken(plaintext), nil
}

// HashToken is the stored form of an API token. Tokens carry 256 bits of
// entropy, so an unsalted SHA-256 is enough for lookup by hash.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// GenerateSessionSecret returns a hex-encoded 32-byte secret.
func GenerateSessionSecret() (string, error) {
	return randomHex(tokenBytes)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
