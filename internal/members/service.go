package members

import (
	"context"
	"fmt"
	"strings"
)

// RepositoryPort defines data access methods for member records.
type RepositoryPort interface {
	Create(ctx context.Context, member Member) (Member, error)
	Update(ctx context.Context, member Member) (Member, error)
	Get(ctx context.Context, id int64) (Member, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, query string, offset, limit int) ([]Member, int, error)
}

// Service handles member business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new member.
func (s *Service) Create(ctx context.Context, member Member) (Member, error) {
	if err := normalizeInput(&member); err != nil {
		return Member{}, err
	}
	return s.repo.Create(ctx, member)
}

// Update validates and rewrites an existing member.
func (s *Service) Update(ctx context.Context, member Member) (Member, error) {
	if err := normalizeInput(&member); err != nil {
		return Member{}, err
	}
	return s.repo.Update(ctx, member)
}

// Get fetches one member.
func (s *Service) Get(ctx context.Context, id int64) (Member, error) {
	return s.repo.Get(ctx, id)
}

// Delete removes a member.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Search lists members matching the folded query.
func (s *Service) Search(ctx context.Context, query string, offset, limit int) ([]Member, int, error) {
	return s.repo.Search(ctx, query, offset, limit)
}

func normalizeInput(member *Member) error {
	member.Name = strings.TrimSpace(member.Name)
	if member.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidMember)
	}
	member.Email = strings.ToLower(strings.TrimSpace(member.Email))
	member.Phone = strings.TrimSpace(member.Phone)
	member.Notes = strings.TrimSpace(member.Notes)
	return nil
}
