package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amparo-app/amparo/internal/authz"
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

const userColumns = `id, email, name, password_hash, role, status, created_at, updated_at`

// bootstrapLockID keys the advisory lock that serializes first-account
// detection across concurrent registrations.
const bootstrapLockID = int64(7201)

// Create inserts a new account. When the table is empty the account is
// promoted to an approved administrator; the emptiness check and the
// insert run in one transaction under an advisory lock, so concurrent
// registrations on a fresh database produce exactly one administrator.
// A duplicate email maps to shared.ErrDuplicateEmail.
func (r *Repository) Create(ctx context.Context, user User) (User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return User{}, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockID); err != nil {
		return User{}, err
	}
	var empty bool
	if err := tx.QueryRow(ctx, `SELECT NOT EXISTS (SELECT 1 FROM users)`).Scan(&empty); err != nil {
		return User{}, err
	}
	if empty {
		user.Role = authz.RoleAdmin
		user.Status = authz.StatusApproved
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash, role, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 RETURNING `+userColumns,
		user.Email, user.Name, user.PasswordHash, string(user.Role), string(user.Status),
	).Scan(scanTargets(&user)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, shared.ErrDuplicateEmail
		}
		return User{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return User{}, err
	}
	return user, nil
}

// Get fetches an account by ID.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	).Scan(scanTargets(&user)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// FindByEmail fetches an account by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email,
	).Scan(scanTargets(&user)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// List returns accounts, optionally filtered by status, ordered by id.
func (r *Repository) List(ctx context.Context, status authz.Status, offset, limit int) ([]User, int, error) {
	var total int
	countQuery := `SELECT count(*) FROM users`
	listQuery := `SELECT ` + userColumns + ` FROM users`
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
		listQuery += ` ORDER BY id OFFSET $2 LIMIT $3`
	} else {
		listQuery += ` ORDER BY id OFFSET $1 LIMIT $2`
	}
	rows, err := r.pool.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		var user User
		if err := rows.Scan(scanTargets(&user)...); err != nil {
			return nil, 0, err
		}
		result = append(result, user)
	}
	return result, total, rows.Err()
}

// UpdateStatus transitions an account's status.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status authz.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET status = $2, updated_at = now() WHERE id = $1`,
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

func scanTargets(user *User) []any {
	return []any{
		&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		(*string)(&user.Role), (*string)(&user.Status),
		&user.CreatedAt, &user.UpdatedAt,
	}
}
