package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/amparo-app/amparo/internal/authz"
	"github.com/amparo-app/amparo/internal/shared"
	"github.com/amparo-app/amparo/internal/users"
)

// UserFinder looks up accounts for credential checks.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (users.User, error)
}

// SessionStore persists session records for auditing.
type SessionStore interface {
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// Service wraps authentication business rules.
type Service struct {
	finder   UserFinder
	sessions SessionStore
}

// NewService constructs a new Service.
func NewService(finder UserFinder, sessions SessionStore) *Service {
	return &Service{finder: finder, sessions: sessions}
}

// Authenticate validates email/password credentials. Pending accounts may
// log in (they only reach setup-exempt capabilities); rejected accounts
// are refused outright.
func (s *Service) Authenticate(ctx context.Context, email, password string) (users.User, error) {
	user, err := s.finder.FindByEmail(ctx, email)
	if err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return users.User{}, shared.ErrInvalidCredentials
	}
	if user.Status == authz.StatusRejected {
		return users.User{}, shared.ErrAccountRejected
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		return errors.New("auth: session store not configured")
	}
	return s.sessions.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.DeleteSession(ctx, id)
}
