package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/thraizz/wildwood-server-go/internal/game"
	"github.com/thraizz/wildwood-server-go/internal/game/scheduler"
	"github.com/thraizz/wildwood-server-go/internal/game/state"
	"github.com/thraizz/wildwood-server-go/internal/storage"
)

func testFactory(t *testing.T) Factory {
	return func(id string) (*game.Engine, error) {
		cfg := game.DefaultConfig()
		cfg.ContentEnabled = false
		return game.NewEngine(zaptest.NewLogger(t),
			game.WithSessionID(id),
			game.WithConfig(cfg),
			game.WithSeed(7),
		)
	}
}

func TestCreateAndGet(t *testing.T) {
	m := NewManager(testFactory(t), zaptest.NewLogger(t))

	s, err := m.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, s.ID, s.Engine.SessionID())

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Count())

	_, ok = m.Get("missing")
	assert.False(t, ok)

	m.Remove(s.ID)
	assert.Zero(t, m.Count())
}

func TestSessionLimit(t *testing.T) {
	m := NewManager(testFactory(t), zaptest.NewLogger(t), WithLimits(2, 0))

	for i := 0; i < 2; i++ {
		_, err := m.Create()
		require.NoError(t, err)
	}
	_, err := m.Create()
	assert.ErrorIs(t, err, ErrLimit)
	assert.Len(t, m.All(), 2)
}

func TestSweepDropsIdleSessions(t *testing.T) {
	clock := scheduler.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	m := NewManager(testFactory(t), zaptest.NewLogger(t),
		WithClock(clock),
		WithLimits(10, time.Hour),
	)

	idle, err := m.Create()
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)
	busy, err := m.Create()
	require.NoError(t, err)

	clock.Advance(45 * time.Minute)
	_, ok := m.Get(busy.ID)
	require.True(t, ok)

	assert.Equal(t, 1, m.Sweep())
	_, ok = m.Get(idle.ID)
	assert.False(t, ok)
	_, ok = m.Get(busy.ID)
	assert.True(t, ok)
}

func TestResumeFromStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	first := NewManager(testFactory(t), zaptest.NewLogger(t), WithStore(store))
	s, err := first.Create()
	require.NoError(t, err)
	require.NoError(t, s.Engine.Setup(ctx))
	require.NoError(t, s.Engine.StartRun(ctx, game.RunOptions{Character: "ranger"}))
	data, err := s.Engine.Save()
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, s.ID, data))

	second := NewManager(testFactory(t), zaptest.NewLogger(t), WithStore(store))
	resumed, err := second.Resume(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusPlaying, resumed.Engine.State().Status)

	again, err := second.Resume(ctx, s.ID)
	require.NoError(t, err)
	assert.Same(t, resumed, again)

	_, err = second.Resume(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCloseAll(t *testing.T) {
	m := NewManager(testFactory(t), zaptest.NewLogger(t))
	_, err := m.Create()
	require.NoError(t, err)

	m.CloseAll()
	assert.Zero(t, m.Count())
}
