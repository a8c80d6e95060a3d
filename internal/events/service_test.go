package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amparo-app/amparo/internal/shared"
)

type memoryEventRepo struct {
	byID   map[int64]Event
	nextID int64
}

func newMemoryEventRepo() *memoryEventRepo {
	return &memoryEventRepo{byID: make(map[int64]Event), nextID: 1}
}

func (m *memoryEventRepo) Create(ctx context.Context, event Event) (Event, error) {
	event.ID = m.nextID
	m.nextID++
	m.byID[event.ID] = event
	return event, nil
}

func (m *memoryEventRepo) Update(ctx context.Context, event Event) (Event, error) {
	if _, ok := m.byID[event.ID]; !ok {
		return Event{}, shared.ErrNotFound
	}
	m.byID[event.ID] = event
	return event, nil
}

func (m *memoryEventRepo) Get(ctx context.Context, id int64) (Event, error) {
	event, ok := m.byID[id]
	if !ok {
		return Event{}, shared.ErrNotFound
	}
	return event, nil
}

func (m *memoryEventRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.byID[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memoryEventRepo) ListUpcoming(ctx context.Context, from time.Time, offset, limit int) ([]Event, int, error) {
	var out []Event
	for id := int64(1); id < m.nextID; id++ {
		event, ok := m.byID[id]
		if !ok || !event.EndsAt.After(from) {
			continue
		}
		out = append(out, event)
	}
	return out, len(out), nil
}

func validEvent() Event {
	starts := time.Date(2026, time.September, 5, 19, 0, 0, 0, time.UTC)
	return Event{
		Title:    "Culto de celebração",
		Location: "Salão principal",
		StartsAt: starts,
		EndsAt:   starts.Add(2 * time.Hour),
		Capacity: 120,
	}
}

func TestCreateEventValidation(t *testing.T) {
	svc := NewService(newMemoryEventRepo())

	created, err := svc.Create(context.Background(), validEvent())
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	t.Run("title trimmed", func(t *testing.T) {
		event := validEvent()
		event.Title = "  Ensaio do coral  "
		created, err := svc.Create(context.Background(), event)
		require.NoError(t, err)
		assert.Equal(t, "Ensaio do coral", created.Title)
	})

	t.Run("blank title rejected", func(t *testing.T) {
		event := validEvent()
		event.Title = "   "
		_, err := svc.Create(context.Background(), event)
		assert.ErrorIs(t, err, ErrInvalidEvent)
	})

	t.Run("end before start rejected", func(t *testing.T) {
		event := validEvent()
		event.EndsAt = event.StartsAt.Add(-time.Hour)
		_, err := svc.Create(context.Background(), event)
		assert.ErrorIs(t, err, ErrInvalidEvent)
	})

	t.Run("end equal to start rejected", func(t *testing.T) {
		event := validEvent()
		event.EndsAt = event.StartsAt
		_, err := svc.Create(context.Background(), event)
		assert.ErrorIs(t, err, ErrInvalidEvent)
	})

	t.Run("negative capacity rejected", func(t *testing.T) {
		event := validEvent()
		event.Capacity = -1
		_, err := svc.Create(context.Background(), event)
		assert.ErrorIs(t, err, ErrInvalidEvent)
	})
}

func TestUpdateEventValidation(t *testing.T) {
	repo := newMemoryEventRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), validEvent())
	require.NoError(t, err)

	created.Title = ""
	_, err = svc.Update(context.Background(), created)
	assert.ErrorIs(t, err, ErrInvalidEvent)

	created.Title = "Culto (atualizado)"
	updated, err := svc.Update(context.Background(), created)
	require.NoError(t, err)
	assert.Equal(t, "Culto (atualizado)", updated.Title)
}

func TestListUpcomingUsesClock(t *testing.T) {
	repo := newMemoryEventRepo()
	svc := NewService(repo)

	past := validEvent()
	past.StartsAt = time.Date(2026, time.January, 1, 10, 0, 0, 0, time.UTC)
	past.EndsAt = past.StartsAt.Add(time.Hour)
	_, err := svc.Create(context.Background(), past)
	require.NoError(t, err)

	future, err := svc.Create(context.Background(), validEvent())
	require.NoError(t, err)

	svc.WithNow(func() time.Time {
		return time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	})
	list, total, err := svc.ListUpcoming(context.Background(), 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, future.ID, list[0].ID)
}
