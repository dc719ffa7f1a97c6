package watchers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thraizz/wildwood-server-go/internal/game/rules"
)

func TestDamageTakenWatcher(t *testing.T) {
	watcher := NewDamageTakenWatcher()
	assert.False(t, watcher.Seen())

	watcher.Watch(rules.NewEventWithAmount(rules.EventPlayerDamaged, "player", "wolf", "player", 3))
	watcher.Watch(rules.NewEventWithAmount(rules.EventPlayerDamaged, "player", "thunderstorm", "player", 2))
	watcher.Watch(rules.NewEventWithAmount(rules.EventPlayerDamaged, "player", "wolf", "player", 0))
	watcher.Watch(rules.NewEventWithAmount(rules.EventPlayerHealed, "player", "jerky", "player", 4))

	assert.True(t, watcher.Seen())
	assert.Equal(t, 5, watcher.Amount("player"))
	assert.Equal(t, 3, watcher.AmountFrom("player", "wolf"))

	watcher.Reset()
	assert.False(t, watcher.Seen())
	assert.Equal(t, 0, watcher.Amount("player"))
}

func TestThreatsDefeatedWatcher(t *testing.T) {
	watcher := NewThreatsDefeatedWatcher()
	watcher.Watch(rules.NewEvent(rules.EventThreatDefeated, "fox", "hatchet", "player"))
	watcher.Watch(rules.NewEvent(rules.EventThreatDefeated, "", "hatchet", "player"))
	watcher.Watch(rules.NewEvent(rules.EventBossDefeated, "boss-1", "rifle", "player"))

	assert.Equal(t, 1, watcher.Count())
	assert.Equal(t, []string{"fox"}, watcher.Defeated())
	assert.True(t, watcher.BossDefeated())

	watcher.Reset()
	assert.Zero(t, watcher.Count())
	assert.False(t, watcher.BossDefeated())
}

func TestCapturesWatcher(t *testing.T) {
	watcher := NewCapturesWatcher()
	watcher.Watch(rules.NewEvent(rules.EventThreatCaptured, "rabbit", "snare_trap", "player"))
	watcher.Watch(rules.NewEvent(rules.EventThreatDefeated, "fox", "hatchet", "player"))

	assert.Equal(t, []string{"rabbit"}, watcher.Captured())
	assert.Equal(t, 1, watcher.CountByTrap("snare_trap"))
}

func TestGoldFlowWatcher(t *testing.T) {
	watcher := NewGoldFlowWatcher()
	watcher.Watch(rules.NewEventWithAmount(rules.EventGoldGained, "player", "sell", "player", 6))
	watcher.Watch(rules.NewEventWithAmount(rules.EventGoldLost, "player", "pickpocket", "player", 3))

	assert.Equal(t, 6, watcher.Gained())
	assert.Equal(t, 3, watcher.Lost())
	assert.Equal(t, 3, watcher.Net())
}

func TestRunTallyClearsOnRunStart(t *testing.T) {
	watcher := NewRunTallyWatcher()
	watcher.Watch(rules.NewEventWithAmount(rules.EventDayStarted, "", "", "player", 2))
	watcher.Watch(rules.NewEventWithAmount(rules.EventPlayerDamaged, "player", "wolf", "player", 4))
	watcher.Watch(rules.NewEvent(rules.EventThreatDefeated, "fox", "hatchet", "player"))
	watcher.Watch(rules.NewEvent(rules.EventThreatCaptured, "rabbit", "snare_trap", "player"))

	assert.Equal(t, 1, watcher.DaysSurvived())
	assert.Equal(t, 4, watcher.DamageTaken())
	assert.Equal(t, 2, watcher.ThreatsRemoved())

	watcher.Watch(rules.NewEvent(rules.EventRunStarted, "ranger", "retry", "player"))
	assert.Zero(t, watcher.DamageTaken())
	assert.False(t, watcher.Seen())
}

func TestRegisterDefaultsWithBus(t *testing.T) {
	registry := rules.NewWatcherRegistry()
	require.NoError(t, RegisterDefaults(registry))
	assert.Equal(t, 5, registry.Len())
	assert.Error(t, RegisterDefaults(registry), "keys are unique")

	bus := rules.NewEventBus()
	bus.Subscribe(registry.Notify)

	bus.Publish(rules.NewEventWithAmount(rules.EventPlayerDamaged, "player", "bear", "player", 5))
	bus.Publish(rules.NewEvent(rules.EventThreatCaptured, "deer", "cage_trap", "player"))

	damage, ok := registry.Get(KeyDamageTaken).(*DamageTakenWatcher)
	require.True(t, ok)
	assert.Equal(t, 5, damage.Amount("player"))

	captures, ok := registry.Get(KeyCaptures).(*CapturesWatcher)
	require.True(t, ok)
	assert.Len(t, captures.Captured(), 1)

	run, ok := registry.Get(KeyRunTally).(*RunTallyWatcher)
	require.True(t, ok)

	registry.Reset(rules.SpanDay)
	assert.Equal(t, 0, damage.Amount("player"))
	assert.Equal(t, 5, run.DamageTaken())

	registry.Reset(rules.SpanRun)
	assert.Zero(t, run.DamageTaken())
}
