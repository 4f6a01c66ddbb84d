package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"family-os/internal/database"
	"family-os/internal/family"
	"family-os/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "sessions.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m, err := NewManager(NewRepository(db.SQL), "test-secret", time.Hour)
	require.NoError(t, err)
	return m
}

func TestStartCurrentEnd(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	fam := family.New(family.DefaultID)

	s, err := m.Start(ctx, fam, "", "kid")
	require.NoError(t, err)
	assert.Equal(t, "Kid", s.Member)
	assert.True(t, s.IsChild())
	assert.Equal(t, family.DefaultID, s.FamilyID)

	got, err := m.Current(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	require.NoError(t, m.End(ctx, s.ID))
	_, err = m.Current(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStartUnknownMember(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Start(context.Background(), family.New(family.DefaultID), "", "Grandma")
	assert.ErrorIs(t, err, ErrUnknownMember)
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	s, err := m.Start(ctx, family.New(family.DefaultID), "", "Dad")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = m.Current(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNoSession)

	n, err := m.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestChannelSessionsAreReplaced(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	fam := family.New(family.DefaultID)

	_, err := m.Start(ctx, fam, "tg:42", "Dad")
	require.NoError(t, err)
	second, err := m.Start(ctx, fam, "tg:42", "Kid")
	require.NoError(t, err)

	got, err := m.CurrentForChannel(ctx, "tg:42")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, "Kid", got.Member)

	require.NoError(t, m.EndChannel(ctx, "tg:42"))
	_, err = m.CurrentForChannel(ctx, "tg:42")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	s, err := m.Start(ctx, family.New(family.DefaultID), "", "Dad")
	require.NoError(t, err)
	token, err := m.Token(s)
	require.NoError(t, err)

	got, err := m.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	t.Run("WrongSecret", func(t *testing.T) {
		other, err := NewManager(m.repo, "another-secret", time.Hour)
		require.NoError(t, err)
		_, err = other.Verify(ctx, token)
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := m.Verify(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("LoggedOut", func(t *testing.T) {
		require.NoError(t, m.End(ctx, s.ID))
		_, err := m.Verify(ctx, token)
		assert.ErrorIs(t, err, ErrNoSession)
	})
}
