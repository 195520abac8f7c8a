package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordBytes = 72
)

// PasswordError is a rejected password. Its message is shown next to the
// password field.
type PasswordError struct {
	msg string
}

func (e *PasswordError) Error() string {
	return e.msg
}

var (
	ErrInvalidPassword = errors.New("invalid password")

	ErrPasswordTooShort = &PasswordError{fmt.Sprintf(
		"This password is too short. It must contain at least %d characters.", MinPasswordLength)}
	ErrPasswordTooLong = &PasswordError{fmt.Sprintf(
		"This password is too long. It must contain no more than %d bytes.", MaxPasswordBytes)}
	ErrPasswordNumeric     = &PasswordError{"This password is entirely numeric."}
	ErrPasswordLikeAccount = &PasswordError{"The password is too similar to the username."}
)

// CheckPasswordPolicy enforces the length limits bcrypt can honour.
func CheckPasswordPolicy(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// CheckNewPassword applies the length limits plus the rules for a password
// chosen at sign-up: not only digits, and not the username itself.
func CheckNewPassword(password, username string) error {
	if err := CheckPasswordPolicy(password); err != nil {
		return err
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return ErrPasswordNumeric
	}
	if username != "" && strings.Contains(strings.ToLower(password), strings.ToLower(username)) {
		return ErrPasswordLikeAccount
	}
	return nil
}

// HashPassword bcrypts password. Costs below bcrypt.MinCost use the default.
func HashPassword(password string, cost int) (string, error) {
	if err := CheckPasswordPolicy(password); err != nil {
		return "", err
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword returns ErrInvalidPassword when password does not match hash.
func CheckPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidPassword
	}
	return err
}

// GenerateSessionSecret returns 32 random bytes, hex encoded.
func GenerateSessionSecret() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}
