package crypto

import (
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var ErrWeakPassword = errors.New("password must be at least 8 characters long and contain no special characters")

var alphanumeric = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ValidatePasswordStrength accepts passwords of at least 8 ASCII letters or
// digits.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 || !alphanumeric.MatchString(password) {
		return ErrWeakPassword
	}
	return nil
}
