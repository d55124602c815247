package auth

import (
	"context"
	"errors"
	"time"

	"bookcatalog/internal/apperr"
	"bookcatalog/internal/httpx"
	"bookcatalog/internal/platform/crypto"
	"bookcatalog/internal/user"
)

var (
	ErrInvalidCredentials = apperr.New(apperr.KindAuth, "Invalid credentials")
	ErrInvalidToken       = apperr.New(apperr.KindAuth, "Could not validate credentials")
	ErrUnknownUser        = apperr.New(apperr.KindAuth, "User not found")
)

// UserFinder is the part of the user store the auth service reads.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type Service struct {
	secret string
	ttl    time.Duration
	users  UserFinder
}

func NewService(secret string, ttl time.Duration, users UserFinder) *Service {
	return &Service{secret: secret, ttl: ttl, users: users}
}

// TTL is the lifetime of issued access tokens.
func (s *Service) TTL() time.Duration { return s.ttl }

// Login checks the credentials and issues an access token whose subject is the
// user's email.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", time.Time{}, ErrInvalidCredentials
		}
		return "", time.Time{}, apperr.Internal(err, "load user")
	}
	if !crypto.VerifyPassword(u.PasswordHash, password) {
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := crypto.GenerateToken(s.secret, u.Email, s.ttl)
	if err != nil {
		return "", time.Time{}, apperr.Internal(err, "sign token")
	}
	return token, expiresAt, nil
}

// Authenticate parses token and loads the user named by its subject.
func (s *Service) Authenticate(ctx context.Context, token string) (httpx.CurrentUser, error) {
	claims, err := crypto.ParseToken(s.secret, token)
	if err != nil {
		return httpx.CurrentUser{}, ErrInvalidToken
	}

	u, err := s.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return httpx.CurrentUser{}, ErrUnknownUser
		}
		return httpx.CurrentUser{}, apperr.Internal(err, "load user")
	}
	return httpx.CurrentUser{ID: u.ID, Email: u.Email}, nil
}
