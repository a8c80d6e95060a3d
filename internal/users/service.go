package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/amparo-app/amparo/internal/authz"
)

// ErrInvalidTransition signals an approve/reject on a non-pending account.
var ErrInvalidTransition = errors.New("users: account is not pending")

// RepositoryPort defines data access methods for accounts. Create must
// promote the first account of an empty store to an approved
// administrator, atomically with the emptiness check.
type RepositoryPort interface {
	Create(ctx context.Context, user User) (User, error)
	Get(ctx context.Context, id int64) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, status authz.Status, offset, limit int) ([]User, int, error)
	UpdateStatus(ctx context.Context, id int64, status authz.Status) error
}

// AuditRecorder records account lifecycle changes.
type AuditRecorder interface {
	Record(ctx context.Context, actorID int64, action, entity string, entityID int64, detail string) error
}

// SnapshotInvalidator drops cached permission snapshots after a status change.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, userID int64)
}

// TaskEnqueuer schedules background work triggered by account events.
type TaskEnqueuer interface {
	EnqueuePendingDigest(ctx context.Context) error
}

// Service handles account registration and the approval lifecycle.
type Service struct {
	repo      RepositoryPort
	audit     AuditRecorder
	snapshots SnapshotInvalidator
	tasks     TaskEnqueuer
	logger    *slog.Logger
}

// NewService builds a Service. audit, snapshots and tasks may be nil.
func NewService(repo RepositoryPort, audit AuditRecorder, snapshots SnapshotInvalidator, tasks TaskEnqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, snapshots: snapshots, tasks: tasks, logger: logger}
}

// Register creates an account in pending state with the member role. The
// repository promotes the very first account to an approved administrator
// so an instance is never locked out; the returned user reflects the
// promotion.
func (s *Service) Register(ctx context.Context, name, email, password string) (User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return User{}, fmt.Errorf("users: name and email required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	created, err := s.repo.Create(ctx, User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         authz.RoleMember,
		Status:       authz.StatusPending,
	})
	if err != nil {
		return User{}, err
	}

	if created.Status == authz.StatusPending && s.tasks != nil {
		if err := s.tasks.EnqueuePendingDigest(ctx); err != nil && s.logger != nil {
			s.logger.Warn("enqueue pending digest", slog.Any("error", err))
		}
	}
	return created, nil
}

// Approve transitions a pending account to approved.
func (s *Service) Approve(ctx context.Context, actorID, userID int64) (User, error) {
	return s.transition(ctx, actorID, userID, authz.StatusApproved, "users.approve")
}

// Reject transitions a pending account to rejected.
func (s *Service) Reject(ctx context.Context, actorID, userID int64) (User, error) {
	return s.transition(ctx, actorID, userID, authz.StatusRejected, "users.reject")
}

func (s *Service) transition(ctx context.Context, actorID, userID int64, to authz.Status, action string) (User, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if user.Status != authz.StatusPending {
		return User{}, ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, userID, to); err != nil {
		return User{}, err
	}
	user.Status = to

	if s.snapshots != nil {
		s.snapshots.Invalidate(ctx, userID)
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, actorID, action, "user", userID, string(to)); err != nil && s.logger != nil {
			s.logger.Warn("audit status change", slog.Any("error", err))
		}
	}
	return user, nil
}

// List returns accounts with an optional status filter.
func (s *Service) List(ctx context.Context, status authz.Status, offset, limit int) ([]User, int, error) {
	return s.repo.List(ctx, status, offset, limit)
}

// Get fetches one account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}
