package store

import (
	"context"
	"testing"
	"time"

	"family-os/internal/family"
	"family-os/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore is an in-memory DocumentStore that counts reads.
type countingStore struct {
	docs   map[string]*family.Family
	events []family.FeedbackEvent
	gets   int
}

func newCountingStore() *countingStore {
	return &countingStore{docs: map[string]*family.Family{}}
}

func (s *countingStore) Get(_ context.Context, id string) (*family.Family, error) {
	s.gets++
	fam, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *fam
	return &cp, nil
}

func (s *countingStore) Set(_ context.Context, id string, fam *family.Family) error {
	cp := *fam
	s.docs[id] = &cp
	return nil
}

func (s *countingStore) Update(_ context.Context, id string, fields map[string]any) error {
	fam, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	if prefs, ok := fields[family.FieldPreferences].(map[string]int); ok {
		fam.Preferences = prefs
	}
	return nil
}

func (s *countingStore) AppendEvent(_ context.Context, _ string, ev family.FeedbackEvent) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *countingStore) ListEvents(context.Context, string, int) ([]family.FeedbackEvent, error) {
	return s.events, nil
}

func TestCachedServesFromCacheUntilWrite(t *testing.T) {
	ctx := context.Background()
	inner := newCountingStore()
	require.NoError(t, inner.Set(ctx, "f", family.New("f")))

	c := NewCached(inner, NewMemoryCache(), time.Minute, logger.Nop())

	first, err := c.Get(ctx, "f")
	require.NoError(t, err)
	first.Members = nil // callers get a private copy

	second, err := c.Get(ctx, "f")
	require.NoError(t, err)
	assert.Len(t, second.Members, 2)
	assert.Equal(t, 1, inner.gets)

	require.NoError(t, c.Update(ctx, "f", map[string]any{family.FieldPreferences: map[string]int{"x": 1}}))
	third, err := c.Get(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, 1, third.Preferences["x"], "write must be visible on the next read")
	assert.Equal(t, 2, inner.gets)
}

func TestCachedExpiry(t *testing.T) {
	ctx := context.Background()
	inner := newCountingStore()
	require.NoError(t, inner.Set(ctx, "f", family.New("f")))

	mem := NewMemoryCache()
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	mem.now = func() time.Time { return now }
	c := NewCached(inner, mem, 10*time.Minute, logger.Nop())

	_, err := c.Get(ctx, "f")
	require.NoError(t, err)
	now = now.Add(9 * time.Minute)
	_, err = c.Get(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.gets)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.gets)
}

func TestCachedNotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := newCountingStore()
	c := NewCached(inner, NewMemoryCache(), time.Minute, logger.Nop())

	_, err := c.Get(ctx, "f")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "f", family.New("f")))
	fam, err := c.Get(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, "f", fam.ID)
}

func TestToPlain(t *testing.T) {
	plain, err := toPlain(&family.Meal{Name: "Soup", Ingredients: []string{"1 onion"}, Locked: true})
	require.NoError(t, err)
	m, ok := plain.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Soup", m["name"])
	assert.Equal(t, true, m["locked"])
	assert.Equal(t, []any{"1 onion"}, m["ingredients"])

	fam, err := fromPlain("fam", map[string]any{"members": []any{map[string]any{"name": "Dad", "role": "parent"}}})
	require.NoError(t, err)
	assert.Equal(t, "fam", fam.ID)
	assert.Equal(t, family.RoleParent, fam.Members[0].Role)
}
