package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingWatcher counts events of one type.
type countingWatcher struct {
	Tally
	kind  EventType
	count int
}

func newCountingWatcher(key string, span Span, kind EventType) *countingWatcher {
	return &countingWatcher{Tally: NewTally(key, span), kind: kind}
}

func (w *countingWatcher) Watch(event Event) {
	if event.Type != w.kind {
		return
	}
	w.count++
	w.Mark()
}

func (w *countingWatcher) Reset() {
	w.Tally.Reset()
	w.count = 0
}

func TestWatcherRegistryNotifiesAndResetsBySpan(t *testing.T) {
	registry := NewWatcherRegistry()
	daily := newCountingWatcher("daily_kills", SpanDay, EventThreatDefeated)
	run := newCountingWatcher("run_kills", SpanRun, EventThreatDefeated)
	require.NoError(t, registry.Add(daily))
	require.NoError(t, registry.Add(run))

	bus := NewEventBus()
	bus.Subscribe(registry.Notify)
	bus.Publish(NewEvent(EventThreatDefeated, "wolf", "hatchet", "player"))
	bus.Publish(NewEvent(EventPlayerHealed, "player", "jerky", "player"))

	assert.Equal(t, 1, daily.count)
	assert.True(t, daily.Seen())
	assert.Equal(t, 1, run.count)

	registry.Reset(SpanDay)
	assert.Zero(t, daily.count)
	assert.False(t, daily.Seen())
	assert.Equal(t, 1, run.count, "run tallies outlive the day")

	registry.ResetAll()
	assert.Zero(t, run.count)
}

func TestWatcherRegistryRejectsDuplicateKeys(t *testing.T) {
	registry := NewWatcherRegistry()
	require.NoError(t, registry.Add(newCountingWatcher("kills", SpanDay, EventThreatDefeated)))

	assert.Error(t, registry.Add(newCountingWatcher("kills", SpanRun, EventThreatDefeated)))
	assert.Error(t, registry.Add(newCountingWatcher("", SpanDay, EventThreatDefeated)))
	assert.Error(t, registry.Add(nil))
	assert.Equal(t, 1, registry.Len())
	assert.Nil(t, registry.Get("missing"))
}

func TestSpanString(t *testing.T) {
	assert.Equal(t, "day", SpanDay.String())
	assert.Equal(t, "run", SpanRun.String())
	assert.Equal(t, "span(7)", Span(7).String())
}
