package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryAuditRepo struct {
	entries []Entry
}

func (m *memoryAuditRepo) Insert(ctx context.Context, entry Entry) error {
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryAuditRepo) Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error) {
	var matched []Entry
	for _, entry := range m.entries {
		if filters.Action != "" && entry.Action != filters.Action {
			continue
		}
		if filters.Entity != "" && entry.Entity != filters.Entity {
			continue
		}
		if !filters.From.IsZero() && entry.OccurredAt.Before(filters.From) {
			continue
		}
		if !filters.To.IsZero() && !entry.OccurredAt.Before(filters.To) {
			continue
		}
		matched = append(matched, entry)
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *memoryAuditRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var kept []Entry
	var removed int64
	for _, entry := range m.entries {
		if entry.OccurredAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	m.entries = kept
	return removed, nil
}

func TestRecordStampsClock(t *testing.T) {
	repo := &memoryAuditRepo{}
	svc := NewService(repo)
	stamp := time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return stamp })

	require.NoError(t, svc.Record(context.Background(), 3, "users.approve", "user", 9, "aprovado"))
	require.Len(t, repo.entries, 1)
	assert.Equal(t, stamp, repo.entries[0].OccurredAt)
	assert.Equal(t, int64(3), repo.entries[0].ActorID)
	assert.Equal(t, "users.approve", repo.entries[0].Action)
}

func TestTimelinePaging(t *testing.T) {
	repo := &memoryAuditRepo{}
	svc := NewService(repo)
	base := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 45; i++ {
		require.NoError(t, repo.Insert(context.Background(), Entry{
			Action:     "members.update",
			Entity:     "member",
			OccurredAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	first, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, first.Rows, 20)
	assert.True(t, first.Paging.HasNext)
	assert.Equal(t, 2, first.Paging.NextPage)
	assert.Zero(t, first.Paging.PrevPage)

	last, err := svc.Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, last.Rows, 5)
	assert.False(t, last.Paging.HasNext)
	assert.Equal(t, 2, last.Paging.PrevPage)

	t.Run("page size defaults and caps", func(t *testing.T) {
		res, err := svc.Timeline(context.Background(), TimelineFilters{})
		require.NoError(t, err)
		assert.Equal(t, 20, res.Paging.PageSize)
		assert.Equal(t, 1, res.Paging.Page)

		res, err = svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
		require.NoError(t, err)
		assert.Equal(t, 50, res.Paging.PageSize)
		assert.Len(t, res.Rows, 45)
	})
}

func TestTimelineFilters(t *testing.T) {
	repo := &memoryAuditRepo{}
	svc := NewService(repo)
	base := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	seed := []Entry{
		{Action: "users.approve", Entity: "user", OccurredAt: base},
		{Action: "users.reject", Entity: "user", OccurredAt: base.Add(time.Hour)},
		{Action: "assistance.open", Entity: "ficha", OccurredAt: base.Add(2 * time.Hour)},
	}
	for _, entry := range seed {
		require.NoError(t, repo.Insert(context.Background(), entry))
	}

	res, err := svc.Timeline(context.Background(), TimelineFilters{Action: "users.approve"})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "users.approve", res.Rows[0].Action)

	res, err = svc.Timeline(context.Background(), TimelineFilters{Entity: "ficha"})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	res, err = svc.Timeline(context.Background(), TimelineFilters{
		From: base.Add(30 * time.Minute),
		To:   base.Add(90 * time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "users.reject", res.Rows[0].Action)
}

func TestPruneOlderThan(t *testing.T) {
	repo := &memoryAuditRepo{}
	svc := NewService(repo)
	now := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return now })

	old := Entry{Action: "old", OccurredAt: now.Add(-400 * 24 * time.Hour)}
	fresh := Entry{Action: "fresh", OccurredAt: now.Add(-10 * 24 * time.Hour)}
	require.NoError(t, repo.Insert(context.Background(), old))
	require.NoError(t, repo.Insert(context.Background(), fresh))

	removed, err := svc.PruneOlderThan(context.Background(), 365*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	require.Len(t, repo.entries, 1)
	assert.Equal(t, "fresh", repo.entries[0].Action)
}
