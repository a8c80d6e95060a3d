package events

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

const eventColumns = `id, title, description, location, starts_at, ends_at, capacity, created_at, updated_at`

// Create inserts an event.
func (r *Repository) Create(ctx context.Context, event Event) (Event, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO events (title, description, location, starts_at, ends_at, capacity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		 RETURNING `+eventColumns,
		event.Title, event.Description, event.Location, event.StartsAt, event.EndsAt, event.Capacity,
	).Scan(scanTargets(&event)...)
	if err != nil {
		return Event{}, err
	}
	return event, nil
}

// Update rewrites an event.
func (r *Repository) Update(ctx context.Context, event Event) (Event, error) {
	err := r.pool.QueryRow(ctx,
		`UPDATE events
		 SET title = $2, description = $3, location = $4, starts_at = $5, ends_at = $6, capacity = $7, updated_at = now()
		 WHERE id = $1
		 RETURNING `+eventColumns,
		event.ID, event.Title, event.Description, event.Location, event.StartsAt, event.EndsAt, event.Capacity,
	).Scan(scanTargets(&event)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, shared.ErrNotFound
		}
		return Event{}, err
	}
	return event, nil
}

// Get fetches one event.
func (r *Repository) Get(ctx context.Context, id int64) (Event, error) {
	var event Event
	err := r.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	).Scan(scanTargets(&event)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, shared.ErrNotFound
		}
		return Event{}, err
	}
	return event, nil
}

// Delete removes an event.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListUpcoming returns events ending at or after the given instant.
func (r *Repository) ListUpcoming(ctx context.Context, from time.Time, offset, limit int) ([]Event, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM events WHERE ends_at >= $1`, from,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE ends_at >= $1 ORDER BY starts_at, id OFFSET $2 LIMIT $3`,
		from, offset, limit,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Event
	for rows.Next() {
		var event Event
		if err := rows.Scan(scanTargets(&event)...); err != nil {
			return nil, 0, err
		}
		result = append(result, event)
	}
	return result, total, rows.Err()
}

func scanTargets(event *Event) []any {
	return []any{
		&event.ID, &event.Title, &event.Description, &event.Location,
		&event.StartsAt, &event.EndsAt, &event.Capacity,
		&event.CreatedAt, &event.UpdatedAt,
	}
}
