package authz

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amparo-app/amparo/internal/shared"
)

// Repository defines persistence for subject snapshots and overrides.
type Repository interface {
	Subject(ctx context.Context, userID int64) (*Subject, error)
	SaveOverrides(ctx context.Context, userID int64, overrides OverrideSet) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Subject loads the user row and its override set in one round trip each.
// Role and status come back as raw strings; unknown values stay inert at
// evaluation time rather than failing the load.
func (r *PGRepository) Subject(ctx context.Context, userID int64) (*Subject, error) {
	var (
		subject Subject
		role    string
		status  string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, role, status FROM users WHERE id = $1`,
		userID,
	).Scan(&subject.ID, &subject.Email, &subject.Name, &role, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	subject.Role = Role(role)
	subject.Status = Status(status)

	var grants map[string]bool
	err = r.pool.QueryRow(ctx,
		`SELECT grants FROM user_permissions WHERE user_id = $1`,
		userID,
	).Scan(&grants)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	subject.Overrides = OverridesFromGrants(grants)
	return &subject, nil
}

// SaveOverrides replaces the override set for a user. An empty set removes
// the row entirely so the role default applies again.
func (r *PGRepository) SaveOverrides(ctx context.Context, userID int64, overrides OverrideSet) error {
	if len(overrides) == 0 {
		_, err := r.pool.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, userID)
		return err
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_permissions (user_id, grants, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET grants = EXCLUDED.grants, updated_at = now()`,
		userID, overrides.Grants(),
	)
	return err
}

var _ Repository = (*PGRepository)(nil)
