package finance

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RepositoryPort defines data access methods for financial entries.
type RepositoryPort interface {
	Create(ctx context.Context, entry Entry) (Entry, error)
	Get(ctx context.Context, id int64) (Entry, error)
	Delete(ctx context.Context, id int64) error
	ListWindow(ctx context.Context, from, to time.Time, offset, limit int) ([]Entry, int, error)
	SumWindow(ctx context.Context, from, to time.Time) (income, expense int64, err error)
}

// Service handles financial tracking rules.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a financial entry.
func (s *Service) Create(ctx context.Context, entry Entry) (Entry, error) {
	entry.Category = strings.TrimSpace(entry.Category)
	if entry.Category == "" {
		return Entry{}, fmt.Errorf("%w: category required", ErrInvalidEntry)
	}
	if entry.Kind != KindIncome && entry.Kind != KindExpense {
		return Entry{}, fmt.Errorf("%w: kind must be income or expense", ErrInvalidEntry)
	}
	if entry.AmountCents <= 0 {
		return Entry{}, fmt.Errorf("%w: amount must be positive", ErrInvalidEntry)
	}
	if entry.OccurredOn.IsZero() {
		return Entry{}, fmt.Errorf("%w: occurred_on required", ErrInvalidEntry)
	}
	return s.repo.Create(ctx, entry)
}

// Get fetches one entry.
func (s *Service) Get(ctx context.Context, id int64) (Entry, error) {
	return s.repo.Get(ctx, id)
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// ListMonth lists entries of one calendar month.
func (s *Service) ListMonth(ctx context.Context, year, month, offset, limit int) ([]Entry, int, error) {
	from, to, err := monthWindow(year, month)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListWindow(ctx, from, to, offset, limit)
}

// Summary aggregates one calendar month.
func (s *Service) Summary(ctx context.Context, year, month int) (MonthlySummary, error) {
	from, to, err := monthWindow(year, month)
	if err != nil {
		return MonthlySummary{}, err
	}
	income, expense, err := s.repo.SumWindow(ctx, from, to)
	if err != nil {
		return MonthlySummary{}, err
	}
	return MonthlySummary{
		Year:         year,
		Month:        month,
		IncomeCents:  income,
		ExpenseCents: expense,
		BalanceCents: income - expense,
	}, nil
}

func monthWindow(year, month int) (time.Time, time.Time, error) {
	if year < 1900 || year > 3000 || month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: period %d-%d", ErrInvalidEntry, year, month)
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), nil
}
