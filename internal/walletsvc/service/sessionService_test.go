package service

import (
	"context"
	"testing"
	"time"

	"github.com/avvvet/card-wallet/internal/walletsvc/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionsGetCreatesOncePerUser(t *testing.T) {
	s := NewSessions(walletStore(), SyncHooks{})
	ctx := context.Background()

	a := s.Get(ctx, "u1")
	b := s.Get(ctx, "u1")
	c := s.Get(ctx, "u2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"T2", "T1", "T3"}, cardIDs(a.Cards()))
	assert.Equal(t, []string{"X1"}, cardIDs(c.Cards()))
}

func TestSessionsReloadPicksUpRemoteChanges(t *testing.T) {
	ms := walletStore()
	s := NewSessions(ms, SyncHooks{})
	ctx := context.Background()
	cs := s.Get(ctx, "u1")

	ms.Put(models.Card{ID: "T9", UserID: "u1", OpenCount: 50, CreatedAt: t1})
	assert.True(t, s.Reload(ctx, "u1"))
	assert.Equal(t, "T9", cs.Cards()[0].ID)

	assert.False(t, s.Reload(ctx, "stranger"))
}

func TestSessionsSignOutEmptiesAndDrops(t *testing.T) {
	s := NewSessions(walletStore(), SyncHooks{})
	ctx := context.Background()
	cs := s.Get(ctx, "u1")
	require.NotEmpty(t, cs.Cards())

	s.SignOut(ctx, "u1")

	assert.Empty(t, cs.Cards())
	assert.Equal(t, "", cs.User())
	_, ok := s.Lookup("u1")
	assert.False(t, ok)

	next := s.Get(ctx, "u1")
	assert.NotSame(t, cs, next)
	assert.Len(t, next.Cards(), 3)

	s.SignOut(ctx, "never-signed-in")
}

func TestSessionsSweepDropsIdle(t *testing.T) {
	s := NewSessions(walletStore(), SyncHooks{})
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.Get(ctx, "u1")
	now = now.Add(20 * time.Minute)
	s.Get(ctx, "u2")
	now = now.Add(20 * time.Minute)

	assert.Equal(t, 1, s.Sweep(30*time.Minute))
	_, ok := s.Lookup("u1")
	assert.False(t, ok)
	_, ok = s.Lookup("u2")
	assert.True(t, ok)
}

func TestSessionsWithoutStore(t *testing.T) {
	s := NewSessions(nil, SyncHooks{})
	cs := s.Get(context.Background(), "u1")

	assert.Empty(t, cs.Cards())
	assert.False(t, cs.Loading())
}
