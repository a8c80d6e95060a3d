package members

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

const memberColumns = `id, name, email, phone, birth_date, joined_at, notes, created_at, updated_at`

// Create inserts a member along with its folded search key.
func (r *Repository) Create(ctx context.Context, member Member) (Member, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO members (name, normalized_name, email, phone, birth_date, joined_at, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		 RETURNING `+memberColumns,
		member.Name, foldName(member.Name), member.Email, member.Phone,
		member.BirthDate, member.JoinedAt, member.Notes,
	).Scan(scanTargets(&member)...)
	if err != nil {
		return Member{}, err
	}
	return member, nil
}

// Update rewrites a member record.
func (r *Repository) Update(ctx context.Context, member Member) (Member, error) {
	err := r.pool.QueryRow(ctx,
		`UPDATE members
		 SET name = $2, normalized_name = $3, email = $4, phone = $5,
		     birth_date = $6, joined_at = $7, notes = $8, updated_at = now()
		 WHERE id = $1
		 RETURNING `+memberColumns,
		member.ID, member.Name, foldName(member.Name), member.Email, member.Phone,
		member.BirthDate, member.JoinedAt, member.Notes,
	).Scan(scanTargets(&member)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, shared.ErrNotFound
		}
		return Member{}, err
	}
	return member, nil
}

// Get fetches one member.
func (r *Repository) Get(ctx context.Context, id int64) (Member, error) {
	var member Member
	err := r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1`, id,
	).Scan(scanTargets(&member)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, shared.ErrNotFound
		}
		return Member{}, err
	}
	return member, nil
}

// Delete removes a member.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Search lists members whose folded name contains the folded query.
// An empty query lists everyone.
func (r *Repository) Search(ctx context.Context, query string, offset, limit int) ([]Member, int, error) {
	pattern := "%" + foldName(query) + "%"
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM members WHERE normalized_name LIKE $1`, pattern,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM members
		 WHERE normalized_name LIKE $1
		 ORDER BY normalized_name, id OFFSET $2 LIMIT $3`,
		pattern, offset, limit,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Member
	for rows.Next() {
		var member Member
		if err := rows.Scan(scanTargets(&member)...); err != nil {
			return nil, 0, err
		}
		result = append(result, member)
	}
	return result, total, rows.Err()
}

func scanTargets(member *Member) []any {
	return []any{
		&member.ID, &member.Name, &member.Email, &member.Phone,
		&member.BirthDate, &member.JoinedAt, &member.Notes,
		&member.CreatedAt, &member.UpdatedAt,
	}
}
