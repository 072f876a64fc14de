package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

var (
	// ErrPasswordMismatch means the password does not match the stored hash.
	ErrPasswordMismatch = errors.New("password mismatch")
	// ErrPasswordTooLong means the password exceeds what bcrypt can hash.
	ErrPasswordTooLong = errors.New("password longer than 72 bytes")
)

// HashPassword hashes a plaintext password. A cost outside bcrypt's range
// falls back to bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
// Any error other than ErrPasswordMismatch means the stored hash is unusable.
func ComparePassword(hashed, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
