package events

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RepositoryPort defines data access methods for events.
type RepositoryPort interface {
	Create(ctx context.Context, event Event) (Event, error)
	Update(ctx context.Context, event Event) (Event, error)
	Get(ctx context.Context, id int64) (Event, error)
	Delete(ctx context.Context, id int64) error
	ListUpcoming(ctx context.Context, from time.Time, offset, limit int) ([]Event, int, error)
}

// Service handles event scheduling rules.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Create validates and stores a new event.
func (s *Service) Create(ctx context.Context, event Event) (Event, error) {
	if err := validate(&event); err != nil {
		return Event{}, err
	}
	return s.repo.Create(ctx, event)
}

// Update validates and rewrites an event.
func (s *Service) Update(ctx context.Context, event Event) (Event, error) {
	if err := validate(&event); err != nil {
		return Event{}, err
	}
	return s.repo.Update(ctx, event)
}

// Get fetches one event.
func (s *Service) Get(ctx context.Context, id int64) (Event, error) {
	return s.repo.Get(ctx, id)
}

// Delete removes an event.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// ListUpcoming returns events that have not yet ended.
func (s *Service) ListUpcoming(ctx context.Context, offset, limit int) ([]Event, int, error) {
	return s.repo.ListUpcoming(ctx, s.now().UTC(), offset, limit)
}

func validate(event *Event) error {
	event.Title = strings.TrimSpace(event.Title)
	if event.Title == "" {
		return fmt.Errorf("%w: title required", ErrInvalidEvent)
	}
	if !event.EndsAt.After(event.StartsAt) {
		return fmt.Errorf("%w: end must be after start", ErrInvalidEvent)
	}
	if event.Capacity < 0 {
		return fmt.Errorf("%w: capacity cannot be negative", ErrInvalidEvent)
	}
	return nil
}
