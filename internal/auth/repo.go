package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSessionStore implements SessionStore using PostgreSQL.
type PGSessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore constructs a PostgreSQL session store.
func NewSessionStore(pool *pgxpool.Pool) *PGSessionStore {
	return &PGSessionStore{pool: pool}
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGSessionStore) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua)
		 VALUES ($1, $2, now(), $3, $4, $5)`,
		id, userID, expiresAt.UTC(), nullable(ip), nullable(ua),
	)
	return err
}

// DeleteSession removes a session record from the database.
func (r *PGSessionStore) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteExpired removes session records past their expiry.
func (r *PGSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

var _ SessionStore = (*PGSessionStore)(nil)
