package user

import (
	"context"
	"errors"

	"bookcatalog/internal/apperr"
	"bookcatalog/internal/platform/crypto"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates an account after checking the confirmation and the
// password rule.
func (s *Service) Register(ctx context.Context, email, password, confirmPassword string) (User, error) {
	if password != confirmPassword {
		return User{}, apperr.Validation("Passwords do not match")
	}
	if err := crypto.ValidatePasswordStrength(password); err != nil {
		return User{}, apperr.Wrap(err, apperr.KindValidation,
			"Password must be at least 8 characters long and contain no special characters.")
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return User{}, apperr.Internal(err, "hash password")
	}

	u := &User{Email: email, PasswordHash: hash}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return User{}, apperr.Wrap(err, apperr.KindIntegrity, "Email already registered")
		}
		return User{}, apperr.Internal(err, "create user")
	}
	return *u, nil
}

// GetByEmail returns ErrNotFound untouched so callers can decide how to report it.
func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetByEmail(ctx, email)
}
