package audit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists audit entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one entry.
func (r *Repository) Insert(ctx context.Context, entry Entry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_log (actor_id, action, entity, entity_id, detail, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, entry.Detail, entry.OccurredAt,
	)
	return err
}

// Window returns a page of entries, newest first. The caller asks for one
// row beyond the page size to detect whether a next page exists.
func (r *Repository) Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, actor_id, action, entity, entity_id, detail, occurred_at FROM audit_log WHERE 1=1`)
	args := make([]any, 0, 6)
	appendArg := func(clause string, value any) {
		args = append(args, value)
		query.WriteString(clause)
	}
	if !filters.From.IsZero() {
		appendArg(` AND occurred_at >= $`+itoa(len(args)+1), filters.From)
	}
	if !filters.To.IsZero() {
		appendArg(` AND occurred_at < $`+itoa(len(args)+1), filters.To)
	}
	if filters.Action != "" {
		appendArg(` AND action = $`+itoa(len(args)+1), filters.Action)
	}
	if filters.Entity != "" {
		appendArg(` AND entity = $`+itoa(len(args)+1), filters.Entity)
	}
	appendArg(` ORDER BY occurred_at DESC, id DESC OFFSET $`+itoa(len(args)+1), offset)
	appendArg(` LIMIT $`+itoa(len(args)+1), limit)

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.Entity, &entry.EntityID, &entry.Detail, &entry.OccurredAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than the cutoff and reports how many went.
func (r *Repository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_log WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
