package assistance

import (
	"context"
	"errors"

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

const fichaColumns = `id, assisted_name, document, description, status, opened_by, created_at, updated_at`

// Create inserts a new case in open state.
func (r *Repository) Create(ctx context.Context, ficha Ficha) (Ficha, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO assistance_cases (assisted_name, document, description, status, opened_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 RETURNING `+fichaColumns,
		ficha.AssistedName, ficha.Document, ficha.Description, string(StatusOpen), ficha.OpenedBy,
	).Scan(scanTargets(&ficha)...)
	if err != nil {
		return Ficha{}, err
	}
	return ficha, nil
}

// Get fetches one case.
func (r *Repository) Get(ctx context.Context, id int64) (Ficha, error) {
	var ficha Ficha
	err := r.pool.QueryRow(ctx,
		`SELECT `+fichaColumns+` FROM assistance_cases WHERE id = $1`, id,
	).Scan(scanTargets(&ficha)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ficha{}, shared.ErrNotFound
		}
		return Ficha{}, err
	}
	return ficha, nil
}

// UpdateStatus moves a case to a new status.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status CaseStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE assistance_cases SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateDescription rewrites the case narrative.
func (r *Repository) UpdateDescription(ctx context.Context, id int64, description string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE assistance_cases SET description = $2, updated_at = now() WHERE id = $1`,
		id, description,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List returns cases, optionally filtered by status, newest first.
func (r *Repository) List(ctx context.Context, status CaseStatus, offset, limit int) ([]Ficha, int, error) {
	var total int
	countQuery := `SELECT count(*) FROM assistance_cases`
	listQuery := `SELECT ` + fichaColumns + ` FROM assistance_cases`
	args := []any{}
	if status != "" {
		countQuery += ` WHERE status = $1`
		listQuery += ` WHERE status = $1`
		args = append(args, string(status))
	}
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listArgs := append(args, offset, limit)
	if status != "" {
		listQuery += ` ORDER BY created_at DESC, id DESC OFFSET $2 LIMIT $3`
	} else {
		listQuery += ` ORDER BY created_at DESC, id DESC OFFSET $1 LIMIT $2`
	}
	rows, err := r.pool.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Ficha
	for rows.Next() {
		var ficha Ficha
		if err := rows.Scan(scanTargets(&ficha)...); err != nil {
			return nil, 0, err
		}
		result = append(result, ficha)
	}
	return result, total, rows.Err()
}

func scanTargets(ficha *Ficha) []any {
	return []any{
		&ficha.ID, &ficha.AssistedName, &ficha.Document, &ficha.Description,
		(*string)(&ficha.Status), &ficha.OpenedBy, &ficha.CreatedAt, &ficha.UpdatedAt,
	}
}
