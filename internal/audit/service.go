package audit

import (
	"context"
	"fmt"
	"time"
)

// RepositoryPort defines the persistence methods the service needs.
type RepositoryPort interface {
	Insert(ctx context.Context, entry Entry) error
	Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service coordinates audit recording and timeline reads.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds an audit Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Record appends one audit entry.
func (s *Service) Record(ctx context.Context, actorID int64, action, entity string, entityID int64, detail string) error {
	if s.repo == nil {
		return fmt.Errorf("audit: repository not configured")
	}
	return s.repo.Insert(ctx, Entry{
		ActorID:    actorID,
		Action:     action,
		Entity:     entity,
		EntityID:   entityID,
		Detail:     detail,
		OccurredAt: s.now().UTC(),
	})
}

// Timeline returns a page of entries with window paging.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.repo.Window(ctx, filters, offset, pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// PruneOlderThan removes entries past the retention window.
func (s *Service) PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	if s.repo == nil {
		return 0, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.Prune(ctx, s.now().UTC().Add(-retention))
}
