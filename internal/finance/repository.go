package finance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amparo-app/amparo/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, kind, category, description, amount_cents, occurred_on, created_at`

// Create inserts a financial entry.
func (r *Repository) Create(ctx context.Context, entry Entry) (Entry, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO finance_entries (kind, category, description, amount_cents, occurred_on, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 RETURNING `+entryColumns,
		string(entry.Kind), entry.Category, entry.Description, entry.AmountCents, entry.OccurredOn,
	).Scan(scanTargets(&entry)...)
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Delete removes a financial entry.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM finance_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Get fetches one entry.
func (r *Repository) Get(ctx context.Context, id int64) (Entry, error) {
	var entry Entry
	err := r.pool.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM finance_entries WHERE id = $1`, id,
	).Scan(scanTargets(&entry)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, shared.ErrNotFound
		}
		return Entry{}, err
	}
	return entry, nil
}

// ListWindow lists entries within [from, to), newest first.
func (r *Repository) ListWindow(ctx context.Context, from, to time.Time, offset, limit int) ([]Entry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM finance_entries WHERE occurred_on >= $1 AND occurred_on < $2`,
		from, to,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM finance_entries
		 WHERE occurred_on >= $1 AND occurred_on < $2
		 ORDER BY occurred_on DESC, id DESC OFFSET $3 LIMIT $4`,
		from, to, offset, limit,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(scanTargets(&entry)...); err != nil {
			return nil, 0, err
		}
		result = append(result, entry)
	}
	return result, total, rows.Err()
}

// SumWindow totals income and expense within [from, to).
func (r *Repository) SumWindow(ctx context.Context, from, to time.Time) (income, expense int64, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
		   coalesce(sum(amount_cents) FILTER (WHERE kind = 'income'), 0),
		   coalesce(sum(amount_cents) FILTER (WHERE kind = 'expense'), 0)
		 FROM finance_entries WHERE occurred_on >= $1 AND occurred_on < $2`,
		from, to,
	).Scan(&income, &expense)
	return income, expense, err
}

func scanTargets(entry *Entry) []any {
	return []any{
		&entry.ID, (*string)(&entry.Kind), &entry.Category, &entry.Description,
		&entry.AmountCents, &entry.OccurredOn, &entry.CreatedAt,
	}
}
