package main

import (
	"context"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("SIM_RUNS", "3")
	t.Setenv("SIM_CHARACTER", "outlaw")

	var cfg Config
	require.NoError(t, env.Parse(&cfg))
	assert.Equal(t, 3, cfg.Runs)
	assert.Equal(t, "outlaw", cfg.Character)
	assert.Equal(t, int64(1), cfg.Seed)
	assert.Equal(t, 20, cfg.MaxDays)
	assert.False(t, cfg.Content)
}

func TestSimulateIsDeterministic(t *testing.T) {
	cfg := Config{Runs: 2, Seed: 5, Character: "ranger", MaxDays: 4}

	first, err := simulate(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := simulate(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for _, o := range first {
		assert.GreaterOrEqual(t, o.Days, 1)
	}
}

func TestShortRunsReachTheBoss(t *testing.T) {
	cfg := Config{Runs: 1, Seed: 9, Character: "ranger", MaxDays: 1}

	outcomes, err := simulate(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].BossReached)
}

func TestUnknownCharacterFails(t *testing.T) {
	cfg := Config{Runs: 1, Seed: 1, Character: "astronaut", MaxDays: 3}
	_, err := simulate(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestSummarise(t *testing.T) {
	s := summarise([]Outcome{
		{Finished: true, Victory: true, WinReason: "boss_defeated", Days: 10, BossReached: true},
		{Finished: true, Days: 4},
		{Days: 6},
	})
	assert.Equal(t, 3, s.Runs)
	assert.Equal(t, 1, s.Victories)
	assert.Equal(t, 1, s.Defeats)
	assert.Equal(t, 1, s.Unfinished)
	assert.Equal(t, 1, s.BossFights)
	assert.InDelta(t, 6.7, s.AvgDays, 0.1)
	assert.Equal(t, map[string]int{"boss_defeated": 1}, s.Reasons)
	assert.Contains(t, s.String(), "victories=1")
}
