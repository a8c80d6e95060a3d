package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amparo-app/amparo/internal/audit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type pruneRepo struct {
	cutoffs []time.Time
	removed int64
}

func (p *pruneRepo) Insert(ctx context.Context, entry audit.Entry) error { return nil }

func (p *pruneRepo) Window(ctx context.Context, filters audit.TimelineFilters, offset, limit int) ([]audit.Entry, error) {
	return nil, nil
}

func (p *pruneRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	return p.removed, nil
}

func TestAuditPruneHandler(t *testing.T) {
	repo := &pruneRepo{removed: 12}
	service := audit.NewService(repo)
	now := time.Date(2026, time.August, 26, 8, 0, 0, 0, time.UTC)
	service.WithNow(func() time.Time { return now })

	handler := NewAuditPruneHandler(service, testLogger())

	task, err := NewAuditPruneTask(AuditPrunePayload{RetentionDays: 30})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	require.Len(t, repo.cutoffs, 1)
	assert.Equal(t, now.Add(-30*24*time.Hour), repo.cutoffs[0])

	t.Run("malformed payload skips retry", func(t *testing.T) {
		bad := asynq.NewTask(TaskTypeAuditPrune, []byte("{broken"))
		assert.ErrorIs(t, handler(context.Background(), bad), asynq.SkipRetry)
	})

	t.Run("zero retention skips retry", func(t *testing.T) {
		task, err := NewAuditPruneTask(AuditPrunePayload{})
		require.NoError(t, err)
		assert.ErrorIs(t, handler(context.Background(), task), asynq.SkipRetry)
	})
}

type fakeSessionPruner struct {
	removed int64
	err     error
	calls   int
}

func (f *fakeSessionPruner) DeleteExpired(ctx context.Context) (int64, error) {
	f.calls++
	return f.removed, f.err
}

func TestSessionPruneHandler(t *testing.T) {
	pruner := &fakeSessionPruner{removed: 3}
	handler := NewSessionPruneHandler(pruner, testLogger())

	require.NoError(t, handler(context.Background(), NewSessionPruneTask()))
	assert.Equal(t, 1, pruner.calls)

	pruner.err = errors.New("db offline")
	assert.Error(t, handler(context.Background(), NewSessionPruneTask()))
}
